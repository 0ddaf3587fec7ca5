package version

import (
	"context"
	"fmt"

	"github.com/liangyou/vodka/internal/remote"
	"github.com/liangyou/vodka/internal/resolver"
	"github.com/liangyou/vodka/internal/storage"
	"github.com/liangyou/vodka/pkg/models"
)

// Lister 聚合远程目录与本地安装信息。
type Lister struct {
	catalog  remote.CatalogFetcher
	registry storage.Registry
}

// NewLister 创建版本列表服务。
func NewLister(catalog remote.CatalogFetcher, registry storage.Registry) *Lister {
	return &Lister{catalog: catalog, registry: registry}
}

// RemoteEntries 返回远程目录。
func (l *Lister) RemoteEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	if l.catalog == nil {
		return nil, fmt.Errorf("lister: catalog is required")
	}
	return l.catalog.FetchAll(ctx), nil
}

// LocalRuntimes 返回本地已安装的运行时，版本降序。
func (l *Lister) LocalRuntimes() ([]models.InstalledRuntime, error) {
	if l.registry == nil {
		return nil, fmt.Errorf("lister: registry is required")
	}
	runtimes, err := l.registry.Installed()
	if err != nil {
		return nil, fmt.Errorf("lister: %w", err)
	}
	return runtimes, nil
}

// BestEntry 在目录中为 target 选择最合适的条目；source 非空时只考虑该来源。
// 同一版本有多个条目时取目录顺序中的第一个。
func (l *Lister) BestEntry(ctx context.Context, target models.Version, source models.RuntimeSource) (models.CatalogEntry, error) {
	entries, err := l.RemoteEntries(ctx)
	if err != nil {
		return models.CatalogEntry{}, err
	}

	var candidates []models.Version
	for _, e := range entries {
		if source == "" || e.Source == source {
			candidates = append(candidates, e.Version)
		}
	}
	best, ok := resolver.Resolve(target, candidates)
	if !ok {
		return models.CatalogEntry{}, fmt.Errorf("lister: no %d.x runtime in catalog for %s", target.Major, target)
	}
	for _, e := range entries {
		if e.Version == best && (source == "" || e.Source == source) {
			return e, nil
		}
	}
	return models.CatalogEntry{}, fmt.Errorf("lister: %s vanished from catalog", best)
}

// FormatCatalogEntry 格式化目录条目。
func FormatCatalogEntry(e models.CatalogEntry) string {
	return fmt.Sprintf("%-8s %-10s %s", e.Version, e.Source, e.DownloadURL)
}

// FormatInstalled 格式化本地运行时，旧版单槽位带 (legacy) 标记。
func FormatInstalled(rt models.InstalledRuntime) string {
	marker := ""
	if rt.Legacy {
		marker = " (legacy)"
	}
	return fmt.Sprintf("%s%s - %s", rt.Version, marker, rt.Root)
}
