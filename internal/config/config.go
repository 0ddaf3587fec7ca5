// Package config 从默认值、配置文件、.env 与 VODKA_ 环境变量构造 models.Config。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/liangyou/vodka/internal/feed"
	"github.com/liangyou/vodka/internal/remote"
	"github.com/liangyou/vodka/pkg/models"
)

const (
	// EnvPrefix 是环境变量前缀，例如 VODKA_LOCAL_FEED。
	EnvPrefix = "VODKA"

	defaultFetchTimeout    = 15 * time.Second
	defaultDownloadTimeout = 30 * time.Minute
)

// DefaultTargetVersions 是社区源默认查找的目标版本。
var DefaultTargetVersions = []string{"9.21.0", "10.0.0"}

// Options 控制配置来源。
type Options struct {
	ConfigFile string // 显式配置文件，不存在时报错
	EnvFile    string // .env 文件，默认当前目录下的 .env，缺失时忽略
	Home       string // 默认根目录的上级目录，为空时使用用户主目录
}

// Load 按 默认值 < 配置文件 < 环境变量 的优先级构造配置。
func Load(opts Options) (models.Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return models.Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	home := opts.Home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			home = os.TempDir()
		}
	}

	v := viper.New()
	v.SetDefault("root_dir", filepath.Join(home, ".vodka"))
	v.SetDefault("libraries_dir", "")
	v.SetDefault("runtimes_dir", "")
	v.SetDefault("local_feed", "")
	v.SetDefault("base_url", feed.DefaultBaseURL)
	v.SetDefault("tags_url", remote.DefaultTagsURL)
	v.SetDefault("releases_url", remote.DefaultReleasesURL)
	v.SetDefault("source_pattern", remote.DefaultSourcePattern)
	v.SetDefault("asset_ident", remote.DefaultAssetIdent)
	v.SetDefault("target_versions", DefaultTargetVersions)
	v.SetDefault("fetch_timeout", defaultFetchTimeout)
	v.SetDefault("download_timeout", defaultDownloadTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return models.Config{}, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.AddConfigPath(expandHome(v.GetString("root_dir"), home))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return models.Config{}, fmt.Errorf("config: read config: %w", err)
			}
		}
	}

	targets, err := parseTargets(v.GetStringSlice("target_versions"))
	if err != nil {
		return models.Config{}, err
	}

	root := expandHome(v.GetString("root_dir"), home)
	cfg := models.Config{
		RootDir:         root,
		LibrariesDir:    orJoin(expandHome(v.GetString("libraries_dir"), home), root, "Libraries"),
		RuntimesDir:     orJoin(expandHome(v.GetString("runtimes_dir"), home), root, "Runtimes"),
		LocalFeed:       expandHome(v.GetString("local_feed"), home),
		BaseURL:         v.GetString("base_url"),
		TagsURL:         v.GetString("tags_url"),
		ReleasesURL:     v.GetString("releases_url"),
		SourcePattern:   v.GetString("source_pattern"),
		AssetIdent:      v.GetString("asset_ident"),
		TargetVersions:  targets,
		FetchTimeout:    v.GetDuration("fetch_timeout"),
		DownloadTimeout: v.GetDuration("download_timeout"),
	}
	if cfg.FetchTimeout <= 0 || cfg.DownloadTimeout <= 0 {
		return models.Config{}, fmt.Errorf("config: timeouts must be positive (fetch %s, download %s)", cfg.FetchTimeout, cfg.DownloadTimeout)
	}
	return cfg, nil
}

// parseTargets 接受列表或逗号分隔的字符串（环境变量形式）。
func parseTargets(raw []string) ([]models.Version, error) {
	var targets []models.Version
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ver, err := models.ParseVersion(part)
			if err != nil {
				return nil, fmt.Errorf("config: target_versions: %w", err)
			}
			targets = append(targets, ver)
		}
	}
	return targets, nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}

func orJoin(value, root, name string) string {
	if value != "" {
		return value
	}
	return filepath.Join(root, name)
}
