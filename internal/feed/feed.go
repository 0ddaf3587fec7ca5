// Package feed 计算主发行包、校验和与版本元数据三个资源的位置。
package feed

import (
	"path/filepath"
	"strings"

	"github.com/liangyou/vodka/pkg/models"
)

const (
	// ArchiveName 是主发行包的文件名。
	ArchiveName = "Libraries.tar.gz"
	// ChecksumName 是主发行包校验和文件名。
	ChecksumName = ArchiveName + ".sha256"
	// VersionName 是版本元数据文件名，旧版单槽位根目录下也使用同名文件。
	VersionName = "WineVersion.yaml"

	// DefaultBaseURL 是未配置覆盖时使用的远程基址。
	DefaultBaseURL = "https://data.vodka.app/wine"
)

// Feed 描述三个派生资源的位置，Local 为 true 时位置是本地文件路径。
type Feed struct {
	ArchiveLocation  string
	ChecksumLocation string
	VersionLocation  string
	Local            bool
}

// Resolve 根据配置计算资源位置：LocalFeed 优先，其次 BaseURL，最后默认基址。
func Resolve(cfg models.Config) Feed {
	if dir := strings.TrimSpace(cfg.LocalFeed); dir != "" {
		return Feed{
			ArchiveLocation:  filepath.Join(dir, ArchiveName),
			ChecksumLocation: filepath.Join(dir, ChecksumName),
			VersionLocation:  filepath.Join(dir, VersionName),
			Local:            true,
		}
	}

	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/")
	return Feed{
		ArchiveLocation:  base + "/" + ArchiveName,
		ChecksumLocation: base + "/" + ChecksumName,
		VersionLocation:  base + "/" + VersionName,
	}
}
