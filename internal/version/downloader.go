package version

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liangyou/vodka/internal/archive"
	"github.com/liangyou/vodka/pkg/models"
)

const (
	defaultDownloadTimeout = 30 * time.Minute
	progressBuffer         = 16
)

// Opener 打开远程或本地资源。
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, int64, error)
}

// Downloader 负责把发行包下载到临时文件。
type Downloader struct {
	opener       Opener
	downloadsDir string
	timeout      time.Duration
	now          func() time.Time
}

// DownloaderOption 配置 Downloader。
type DownloaderOption func(*Downloader)

// WithDownloadsDir 指定下载目录。
func WithDownloadsDir(dir string) DownloaderOption {
	return func(d *Downloader) {
		if dir != "" {
			d.downloadsDir = dir
		}
	}
}

// WithDownloadTimeout 指定单次下载的超时时间。
func WithDownloadTimeout(timeout time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDownloader 创建 Downloader，默认下载到 <root>/downloads。
func NewDownloader(cfg models.Config, opener Opener, opts ...DownloaderOption) *Downloader {
	dir := cfg.RootDir
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".vodka")
		}
	}
	d := &Downloader{
		opener:       opener,
		downloadsDir: filepath.Join(dir, "downloads"),
		timeout:      defaultDownloadTimeout,
		now:          time.Now,
	}
	if cfg.DownloadTimeout > 0 {
		d.timeout = cfg.DownloadTimeout
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download 同步下载并返回临时文件路径。
func (d *Downloader) Download(ctx context.Context, location string) (string, error) {
	return d.Start(ctx, location).Wait()
}

// Start 在后台开始下载，返回可观察、可取消的 Transfer。
func (d *Downloader) Start(ctx context.Context, location string) *Transfer {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	t := &Transfer{
		samples: make(chan models.Progress, progressBuffer),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go func() {
		defer cancel()
		t.path, t.err = d.run(ctx, location, t)
		close(t.samples)
		close(t.done)
	}()
	return t
}

func (d *Downloader) run(ctx context.Context, location string, t *Transfer) (string, error) {
	if err := os.MkdirAll(d.downloadsDir, 0o755); err != nil {
		return "", fmt.Errorf("downloader: create dir: %w", err)
	}

	body, total, err := d.opener.Open(ctx, location)
	if err != nil {
		return "", fmt.Errorf("downloader: %w", err)
	}
	defer body.Close()

	tempFile, err := os.CreateTemp(d.downloadsDir, "download-*"+archive.Ext(location))
	if err != nil {
		return "", fmt.Errorf("downloader: temp file: %w", err)
	}
	tempPath := tempFile.Name()

	reader := &progressReader{r: body, total: total, report: func(done, total int64) {
		t.publish(models.Progress{CompletedBytes: done, TotalBytes: total, At: d.now()})
	}}
	t.publish(models.Progress{CompletedBytes: 0, TotalBytes: total, At: d.now()})

	_, copyErr := io.Copy(tempFile, ctxReader{ctx: ctx, r: reader})
	if copyErr == nil {
		copyErr = tempFile.Sync()
	}
	closeErr := tempFile.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(tempPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("downloader: %s: %w", location, ctxErr)
		}
		return "", fmt.Errorf("downloader: write file: %w", err)
	}

	log.Debug().Str("url", location).Str("path", tempPath).Int64("bytes", reader.read).Msg("download complete")
	return tempPath, nil
}

// Transfer 是一次进行中的下载。Progress 只能遍历一次，结束于下载完成；
// Wait 返回时失败或取消产生的临时文件已被删除。
type Transfer struct {
	samples  chan models.Progress
	done     chan struct{}
	cancel   context.CancelFunc
	iterated atomic.Bool

	path string
	err  error
}

// Progress 返回进度采样序列。消费者跟不上时旧采样会被丢弃，最后一个采样总会送达。
func (t *Transfer) Progress() iter.Seq[models.Progress] {
	return func(yield func(models.Progress) bool) {
		if !t.iterated.CompareAndSwap(false, true) {
			return
		}
		for p := range t.samples {
			if !yield(p) {
				return
			}
		}
	}
}

// Cancel 取消下载，需配合 Wait 等待清理完成。
func (t *Transfer) Cancel() {
	t.cancel()
}

// Wait 阻塞到下载结束，返回临时文件路径。
func (t *Transfer) Wait() (string, error) {
	<-t.done
	return t.path, t.err
}

// publish 只由下载协程调用；缓冲区满时丢弃最旧的采样。
func (t *Transfer) publish(p models.Progress) {
	for {
		select {
		case t.samples <- p:
			return
		default:
			select {
			case <-t.samples:
			default:
			}
		}
	}
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(done, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report(p.read, p.total)
	}
	return n, err
}

// ctxReader 让本地文件读取也能响应取消。
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(b)
}
