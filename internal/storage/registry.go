package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/liangyou/vodka/internal/feed"
	"github.com/liangyou/vodka/pkg/models"
)

// RuntimeSubdir 是每个版本槽位以及旧版单槽位中运行时根目录的名字。
const RuntimeSubdir = "Wine"

// customProbes 是自定义运行时路径下依次探测的 bin 目录。
var customProbes = []string{
	".",
	"bin",
	filepath.Join("Wine", "bin"),
	filepath.Join("wine", "bin"),
	filepath.Join("Contents", "Resources", "wine", "bin"),
}

// Registry 定义磁盘上多版本运行时的查询接口。
type Registry interface {
	AvailableVersions() ([]models.Version, error)
	Installed() ([]models.InstalledRuntime, error)
	IsInstalled(version models.Version) bool
	ResolveBinFolder(selector models.RuntimeSelector) (string, error)
	RuntimesDir() string
	VersionDir(version models.Version) string
	SlotPath(version models.Version) string
	Lock(version models.Version) (unlock func())
}

// FileRegistry 以目录结构作为唯一事实来源：
// <runtimes>/<M.m.p>/Wine/bin 与旧版 <libraries>/Wine/bin。
type FileRegistry struct {
	librariesDir string
	runtimesDir  string

	mu    sync.Mutex
	locks map[models.Version]*sync.Mutex
}

// NewFileRegistry 根据配置构造注册表，未配置的目录落到 ~/.vodka 下。
func NewFileRegistry(cfg models.Config) *FileRegistry {
	root := cfg.RootDir
	if root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			root = filepath.Join(home, ".vodka")
		} else {
			root = filepath.Join(os.TempDir(), "vodka")
		}
	}
	libraries := cfg.LibrariesDir
	if libraries == "" {
		libraries = filepath.Join(root, "Libraries")
	}
	runtimes := cfg.RuntimesDir
	if runtimes == "" {
		runtimes = filepath.Join(root, "Runtimes")
	}
	return &FileRegistry{
		librariesDir: libraries,
		runtimesDir:  runtimes,
		locks:        make(map[models.Version]*sync.Mutex),
	}
}

// RuntimesDir 返回多版本注册目录。
func (r *FileRegistry) RuntimesDir() string {
	return r.runtimesDir
}

// VersionDir 返回版本目录 <runtimes>/<M.m.p>。
func (r *FileRegistry) VersionDir(version models.Version) string {
	return filepath.Join(r.runtimesDir, version.String())
}

// SlotPath 返回版本槽位中的运行时根目录。
func (r *FileRegistry) SlotPath(version models.Version) string {
	return filepath.Join(r.VersionDir(version), RuntimeSubdir)
}

// LegacyRoot 返回旧版单槽位的运行时根目录。
func (r *FileRegistry) LegacyRoot() string {
	return filepath.Join(r.librariesDir, RuntimeSubdir)
}

// LegacyVersionFile 返回旧版单槽位的版本标记文件。
func (r *FileRegistry) LegacyVersionFile() string {
	return filepath.Join(r.librariesDir, feed.VersionName)
}

// Lock 获取版本级互斥锁，返回的函数用于释放。
func (r *FileRegistry) Lock(version models.Version) func() {
	r.mu.Lock()
	m, ok := r.locks[version]
	if !ok {
		m = &sync.Mutex{}
		r.locks[version] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Installed 列出所有可用运行时，版本降序；旧版单槽位与版本槽位重复时保留版本槽位。
func (r *FileRegistry) Installed() ([]models.InstalledRuntime, error) {
	byVersion := make(map[models.Version]models.InstalledRuntime)

	if v, ok := r.legacyVersion(); ok {
		byVersion[v] = models.InstalledRuntime{Version: v, Root: r.LegacyRoot(), Legacy: true}
	}

	entries, err := os.ReadDir(r.runtimesDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("registry: read %s: %w", r.runtimesDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := models.ParseVersion(entry.Name())
		if err != nil || v.String() != entry.Name() {
			continue
		}
		slot := r.SlotPath(v)
		if !IsRuntimeRoot(slot) {
			log.Debug().Str("path", slot).Msg("skipping incomplete runtime slot")
			continue
		}
		byVersion[v] = models.InstalledRuntime{Version: v, Root: slot}
	}

	result := make([]models.InstalledRuntime, 0, len(byVersion))
	for _, rt := range byVersion {
		result = append(result, rt)
	}
	slices.SortFunc(result, func(a, b models.InstalledRuntime) int {
		return b.Version.Compare(a.Version)
	})
	return result, nil
}

// AvailableVersions 返回旧版单槽位与所有有效版本槽位的并集，版本降序。
func (r *FileRegistry) AvailableVersions() ([]models.Version, error) {
	installed, err := r.Installed()
	if err != nil {
		return nil, err
	}
	versions := make([]models.Version, 0, len(installed))
	for _, rt := range installed {
		versions = append(versions, rt.Version)
	}
	return versions, nil
}

// IsInstalled 报告版本槽位或匹配的旧版单槽位是否可用。
func (r *FileRegistry) IsInstalled(version models.Version) bool {
	_, ok := r.builtinRoot(version)
	return ok
}

// ResolveBinFolder 为内置版本或自定义路径返回可用的 bin 目录。
func (r *FileRegistry) ResolveBinFolder(selector models.RuntimeSelector) (string, error) {
	if selector.IsCustom() {
		return ResolveCustomBinFolder(selector.CustomPath)
	}
	root, ok := r.builtinRoot(selector.Version)
	if !ok {
		return "", &models.NotInstalledError{Version: selector.Version}
	}
	return filepath.Join(root, "bin"), nil
}

func (r *FileRegistry) builtinRoot(version models.Version) (string, bool) {
	if slot := r.SlotPath(version); IsRuntimeRoot(slot) {
		return slot, true
	}
	if v, ok := r.legacyVersion(); ok && v == version {
		return r.LegacyRoot(), true
	}
	return "", false
}

func (r *FileRegistry) legacyVersion() (models.Version, bool) {
	if !IsRuntimeRoot(r.LegacyRoot()) {
		return models.Version{}, false
	}
	v, err := ReadVersionFile(r.LegacyVersionFile())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", r.LegacyVersionFile()).Msg("unreadable legacy version marker")
		}
		return models.Version{}, false
	}
	return v, true
}

// ResolveCustomBinFolder 依次探测自定义路径下的候选 bin 目录。
func ResolveCustomBinFolder(root string) (string, error) {
	probed := make([]string, 0, len(customProbes))
	for _, rel := range customProbes {
		candidate := filepath.Clean(filepath.Join(root, rel))
		probed = append(probed, candidate)
		if IsBinFolder(candidate) {
			return candidate, nil
		}
	}
	return "", &models.InvalidCustomRuntimeError{Path: root, Probed: probed}
}
