package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/liangyou/vodka/internal/resolver"
	"github.com/liangyou/vodka/pkg/models"
)

const (
	// DefaultTagsURL 是官方源的 tag 列表。
	DefaultTagsURL = "https://gitlab.winehq.org/api/v4/projects/wine%2Fwine/repository/tags"
	// DefaultSourcePattern 是官方源码包的下载地址模板。
	DefaultSourcePattern = "https://dl.winehq.org/wine/source/{major}.x/wine-{version}.tar.xz"
	// DefaultReleasesURL 是社区构建的 release 列表。
	DefaultReleasesURL = "https://api.github.com/repos/Gcenx/macOS_Wine_builds/releases"
	// DefaultAssetIdent 是社区构建资产名中的标识。
	DefaultAssetIdent = "wine"
	// ArchiveExt 是社区构建资产的扩展名。
	ArchiveExt = ".tar.xz"
)

// Source 是一个目录源，每次调用都重新获取。
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.CatalogEntry, error)
}

// LatestTagSource 读取最新 tag，并用固定模板构造下载地址。
type LatestTagSource struct {
	client  *Client
	tagsURL string
	pattern string
}

// NewLatestTagSource 创建官方最新 tag 源。
func NewLatestTagSource(client *Client, tagsURL, pattern string) *LatestTagSource {
	if tagsURL == "" {
		tagsURL = DefaultTagsURL
	}
	if pattern == "" {
		pattern = DefaultSourcePattern
	}
	return &LatestTagSource{client: client, tagsURL: tagsURL, pattern: pattern}
}

// Name 实现 Source。
func (s *LatestTagSource) Name() string {
	return string(models.SourceOfficial) + ":latest"
}

// Fetch 实现 Source。
func (s *LatestTagSource) Fetch(ctx context.Context) ([]models.CatalogEntry, error) {
	tags, err := s.client.Tags(ctx, s.tagsURL)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("remote: no tags at %s", s.tagsURL)
	}

	normalized, ok := NormalizeTag(tags[0].Name)
	if !ok {
		return nil, fmt.Errorf("remote: unrecognized tag %q", tags[0].Name)
	}
	v, err := models.ParseVersion(normalized)
	if err != nil {
		return nil, err
	}

	return []models.CatalogEntry{{
		Source:      models.SourceOfficial,
		Version:     v,
		DownloadURL: ExpandPattern(s.pattern, v, normalized),
	}}, nil
}

// ExpandPattern 替换模板中的 {major} 与 {version}。
func ExpandPattern(pattern string, v models.Version, tag string) string {
	return strings.NewReplacer(
		"{major}", strconv.Itoa(v.Major),
		"{version}", tag,
	).Replace(pattern)
}

// TargetVersionSource 在 release 列表中为单个目标版本寻找最接近的构建。
type TargetVersionSource struct {
	client      *Client
	releasesURL string
	ident       string
	target      models.Version
}

// NewTargetVersionSource 创建社区目标版本源。
func NewTargetVersionSource(client *Client, releasesURL, ident string, target models.Version) *TargetVersionSource {
	if releasesURL == "" {
		releasesURL = DefaultReleasesURL
	}
	if ident == "" {
		ident = DefaultAssetIdent
	}
	return &TargetVersionSource{client: client, releasesURL: releasesURL, ident: ident, target: target}
}

// Name 实现 Source。
func (s *TargetVersionSource) Name() string {
	return string(models.SourceCommunity) + ":" + s.target.String()
}

// Fetch 实现 Source。
func (s *TargetVersionSource) Fetch(ctx context.Context) ([]models.CatalogEntry, error) {
	releases, err := s.client.Releases(ctx, s.releasesURL)
	if err != nil {
		return nil, err
	}

	urls := make(map[models.Version]string)
	var candidates []models.Version
	for _, rel := range releases {
		if rel.Draft || rel.Prerelease {
			continue
		}
		v, ok := ParseTag(rel.TagName)
		if !ok {
			continue
		}
		asset := SelectAsset(rel.Assets, s.ident, ArchiveExt)
		if asset == "" {
			continue
		}
		if _, seen := urls[v]; seen {
			continue
		}
		urls[v] = asset
		candidates = append(candidates, v)
	}

	best, ok := resolver.Resolve(s.target, candidates)
	if !ok {
		return nil, fmt.Errorf("remote: no %d.x release for target %s", s.target.Major, s.target)
	}
	return []models.CatalogEntry{{
		Source:      models.SourceCommunity,
		Version:     best,
		DownloadURL: urls[best],
	}}, nil
}

// SelectAsset 按 stable、staging、devel 的顺序挑选资产，
// 都没有时退回第一个扩展名匹配的资产。
func SelectAsset(assets []Asset, ident, ext string) string {
	for _, flavor := range []string{"-stable", "-staging", "-devel"} {
		needle := ident + flavor
		for _, a := range assets {
			if strings.Contains(a.Name, needle) && strings.HasSuffix(a.Name, ext) {
				return a.BrowserDownloadURL
			}
		}
	}
	for _, a := range assets {
		if strings.HasSuffix(a.Name, ext) {
			return a.BrowserDownloadURL
		}
	}
	return ""
}

// DefaultSources 按配置构造官方最新 tag 源与每个目标版本的社区源。
func DefaultSources(client *Client, cfg models.Config) []Source {
	sources := []Source{NewLatestTagSource(client, cfg.TagsURL, cfg.SourcePattern)}
	for _, target := range cfg.TargetVersions {
		sources = append(sources, NewTargetVersionSource(client, cfg.ReleasesURL, cfg.AssetIdent, target))
	}
	return sources
}
