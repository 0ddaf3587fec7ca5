package version

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liangyou/vodka/internal/archive"
	"github.com/liangyou/vodka/internal/feed"
	"github.com/liangyou/vodka/internal/storage"
	"github.com/liangyou/vodka/pkg/models"
)

// staleStagingAge 之前创建的 .staging-* 视为中断安装的遗留。
const staleStagingAge = time.Hour

// primaryLayout 是主发行包解压后运行时根目录的位置。
var primaryLayout = filepath.Join("Libraries", storage.RuntimeSubdir)

// ArtifactDownloader 用于获取发行包。
type ArtifactDownloader interface {
	Start(ctx context.Context, location string) *Transfer
}

// ChecksumVerifier 比对发行包的校验和。
type ChecksumVerifier interface {
	Verify(ctx context.Context, archivePath, checksumLocation string) (bool, error)
}

// Request 描述一次从远程位置安装的请求。
type Request struct {
	Version          models.Version
	Location         string
	ChecksumLocation string // 为空时跳过校验
}

// Installer 负责把发行包安装到多版本注册目录。
type Installer struct {
	registry   storage.Registry
	downloader ArtifactDownloader
	verifier   ChecksumVerifier
	extractor  archive.Extractor
	fetcher    Fetcher
	feed       feed.Feed
	observe    func(iter.Seq[models.Progress])
	now        func() time.Time
}

// InstallerOption 配置 Installer。
type InstallerOption func(*Installer)

// WithProgressObserver 在每次下载开始时以进度序列调用 fn，fn 在独立协程中运行。
func WithProgressObserver(fn func(iter.Seq[models.Progress])) InstallerOption {
	return func(i *Installer) {
		i.observe = fn
	}
}

// WithExtractor 替换默认的 tar 解压器。
func WithExtractor(e archive.Extractor) InstallerOption {
	return func(i *Installer) {
		if e != nil {
			i.extractor = e
		}
	}
}

// NewInstaller 创建 Installer。
func NewInstaller(registry storage.Registry, downloader ArtifactDownloader, verifier ChecksumVerifier, fetcher Fetcher, f feed.Feed, opts ...InstallerOption) *Installer {
	i := &Installer{
		registry:   registry,
		downloader: downloader,
		verifier:   verifier,
		extractor:  archive.NewTarExtractor(),
		fetcher:    fetcher,
		feed:       f,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// FeedVersion 读取 feed 中主发行包的版本。
func (i *Installer) FeedVersion(ctx context.Context) (models.Version, error) {
	if i.fetcher == nil {
		return models.Version{}, errors.New("installer: missing fetcher")
	}
	data, err := i.fetcher.ReadAll(ctx, i.feed.VersionLocation)
	if err != nil {
		return models.Version{}, fmt.Errorf("installer: version metadata: %w", err)
	}
	v, err := storage.DecodeVersion(data)
	if err != nil {
		return models.Version{}, fmt.Errorf("installer: version metadata: %w", err)
	}
	return v, nil
}

// InstallFeed 安装 feed 中的主发行包，并用 feed 的校验和验证。
func (i *Installer) InstallFeed(ctx context.Context) (models.InstalledRuntime, error) {
	v, err := i.FeedVersion(ctx)
	if err != nil {
		return models.InstalledRuntime{}, err
	}
	return i.Install(ctx, Request{
		Version:          v,
		Location:         i.feed.ArchiveLocation,
		ChecksumLocation: i.feed.ChecksumLocation,
	})
}

// InstallEntry 安装目录中的一个条目，并尝试使用同名 .sha256 文件校验。
func (i *Installer) InstallEntry(ctx context.Context, entry models.CatalogEntry) (models.InstalledRuntime, error) {
	return i.Install(ctx, Request{
		Version:          entry.Version,
		Location:         entry.DownloadURL,
		ChecksumLocation: entry.DownloadURL + ".sha256",
	})
}

// InstallLocal 安装用户提供的本地发行包，原文件保留；verify 为 true 时用 feed 的校验和比对。
func (i *Installer) InstallLocal(ctx context.Context, version models.Version, path string, verify bool) (models.InstalledRuntime, error) {
	req := Request{Version: version, Location: path}
	if verify {
		req.ChecksumLocation = i.feed.ChecksumLocation
	}
	return i.Install(ctx, req)
}

// Install 下载、校验并安装。期望校验和存在且不一致时失败；
// 无法获得期望校验和时继续安装，返回值的 Verified 为 false。
func (i *Installer) Install(ctx context.Context, req Request) (models.InstalledRuntime, error) {
	if i.registry == nil || i.downloader == nil || i.verifier == nil {
		return models.InstalledRuntime{}, errors.New("installer: missing dependencies")
	}
	if !archive.Supported(req.Location) {
		return models.InstalledRuntime{}, fmt.Errorf("installer: unsupported archive %s", req.Location)
	}

	archivePath, err := i.download(ctx, req.Location)
	if err != nil {
		return models.InstalledRuntime{}, err
	}
	defer os.Remove(archivePath)

	verified := false
	if req.ChecksumLocation != "" {
		verified, err = i.verifier.Verify(ctx, archivePath, req.ChecksumLocation)
		if err != nil {
			return models.InstalledRuntime{}, fmt.Errorf("installer: verify %s: %w", req.Version, err)
		}
	}
	if !verified {
		log.Warn().Str("version", req.Version.String()).Err(models.ErrChecksumUnavailable).Msg("installing unverified archive")
	}

	rt, err := i.InstallArchive(ctx, req.Version, archivePath)
	if err != nil {
		return models.InstalledRuntime{}, err
	}
	rt.Verified = verified
	return rt, nil
}

func (i *Installer) download(ctx context.Context, location string) (string, error) {
	transfer := i.downloader.Start(ctx, location)

	var wg sync.WaitGroup
	if i.observe != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			i.observe(transfer.Progress())
		}()
	}
	archivePath, err := transfer.Wait()
	wg.Wait()
	if err != nil {
		return "", fmt.Errorf("installer: download: %w", err)
	}
	return archivePath, nil
}

// InstallArchive 解压 archivePath，定位运行时根目录并提交到版本槽位。
// 无论成功与否，暂存目录与 archivePath 都会被删除。
func (i *Installer) InstallArchive(ctx context.Context, version models.Version, archivePath string) (models.InstalledRuntime, error) {
	defer os.Remove(archivePath)

	if i.registry == nil || i.extractor == nil {
		return models.InstalledRuntime{}, errors.New("installer: missing dependencies")
	}
	logger := log.With().Str("version", version.String()).Logger()

	runtimesDir := i.registry.RuntimesDir()
	if err := os.MkdirAll(runtimesDir, 0o755); err != nil {
		return models.InstalledRuntime{}, fmt.Errorf("installer: prepare runtimes dir: %w", err)
	}
	sweepStaging(runtimesDir, i.now().Add(-staleStagingAge))
	staging, err := os.MkdirTemp(runtimesDir, ".staging-*")
	if err != nil {
		return models.InstalledRuntime{}, fmt.Errorf("installer: create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	logger.Debug().Str("path", staging).Msg("extracting")
	if err := i.extractor.Extract(ctx, archivePath, staging); err != nil {
		return models.InstalledRuntime{}, fmt.Errorf("installer: extract: %w", err)
	}

	root, err := locateRuntimeRoot(staging)
	if err != nil {
		return models.InstalledRuntime{}, err
	}
	logger.Debug().Str("path", root).Msg("runtime root located")

	if err := ctx.Err(); err != nil {
		return models.InstalledRuntime{}, err
	}

	slot, err := i.commit(version, root)
	if err != nil {
		return models.InstalledRuntime{}, err
	}
	logger.Info().Str("path", slot).Msg("runtime installed")
	return models.InstalledRuntime{Version: version, Root: slot}, nil
}

// commit 先在版本目录下以临时名暂存，校验通过后再原子替换槽位，
// 替换失败时恢复原有安装。
func (i *Installer) commit(version models.Version, root string) (string, error) {
	unlock := i.registry.Lock(version)
	defer unlock()

	versionDir := i.registry.VersionDir(version)
	_, statErr := os.Stat(versionDir)
	createdVersionDir := errors.Is(statErr, os.ErrNotExist)
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return "", fmt.Errorf("installer: prepare version dir: %w", err)
	}
	sweepIncoming(versionDir)

	incoming, err := os.MkdirTemp(versionDir, ".incoming-*")
	if err != nil {
		return "", fmt.Errorf("installer: create incoming dir: %w", err)
	}
	committed := false
	defer func() {
		os.RemoveAll(incoming)
		if !committed && createdVersionDir {
			os.Remove(versionDir)
		}
	}()

	staged := filepath.Join(incoming, storage.RuntimeSubdir)
	if err := moveDir(root, staged); err != nil {
		return "", fmt.Errorf("installer: copy runtime: %w", err)
	}
	if err := storage.ValidateRuntimeRoot(staged); err != nil {
		return "", fmt.Errorf("installer: %w", err)
	}

	slot := i.registry.SlotPath(version)
	backup := filepath.Join(incoming, "previous")
	hadPrevious := false
	if _, err := os.Lstat(slot); err == nil {
		if err := os.Rename(slot, backup); err != nil {
			return "", fmt.Errorf("installer: set aside previous install: %w", err)
		}
		hadPrevious = true
	}
	if err := os.Rename(staged, slot); err != nil {
		if hadPrevious {
			if restoreErr := os.Rename(backup, slot); restoreErr != nil {
				err = errors.Join(err, restoreErr)
			}
		}
		return "", fmt.Errorf("installer: move into slot: %w", err)
	}
	committed = true

	if err := storage.ValidateRuntimeRoot(slot); err != nil {
		return "", fmt.Errorf("installer: %w", err)
	}
	return slot, nil
}

// sweepStaging 删除早于 cutoff 的暂存目录；较新的可能属于正在进行的安装。
func sweepStaging(runtimesDir string, cutoff time.Time) {
	entries, err := os.ReadDir(runtimesDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), ".staging-") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(runtimesDir, e.Name())
		log.Debug().Str("path", path).Msg("removing stale staging dir")
		os.RemoveAll(path)
	}
}

// sweepIncoming 清理上次中断留下的临时目录，调用方需持有版本锁。
func sweepIncoming(versionDir string) {
	entries, err := os.ReadDir(versionDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".incoming-") {
			os.RemoveAll(filepath.Join(versionDir, e.Name()))
		}
	}
}

// locateRuntimeRoot 先检查已知位置，再递归查找第一个满足运行时判定的目录。
func locateRuntimeRoot(staging string) (string, error) {
	for _, candidate := range []string{staging, filepath.Join(staging, primaryLayout)} {
		if storage.IsRuntimeRoot(candidate) {
			return candidate, nil
		}
	}

	var found string
	err := filepath.WalkDir(staging, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && storage.IsRuntimeRoot(path) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("installer: walk staging dir: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("installer: %w in archive", models.ErrMissingWineBinaries)
	}
	return found, nil
}

// moveDir 优先 rename，跨文件系统时退回复制。
func moveDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyDir(src, dst); err != nil {
		os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
