// Package archive 把 .tar.gz 与 .tar.xz 发行包解压到指定目录。
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/ulikunitz/xz"
)

// Extractor 解压 archivePath 到 dest。
type Extractor interface {
	Extract(ctx context.Context, archivePath, dest string) error
}

// TarExtractor 支持 gzip 与 xz 压缩的 tar 包。
type TarExtractor struct{}

// NewTarExtractor 创建 TarExtractor。
func NewTarExtractor() *TarExtractor {
	return &TarExtractor{}
}

// Supported 报告文件名是否为支持的压缩格式。
func Supported(name string) bool {
	return Ext(name) != ""
}

// Ext 返回受支持的扩展名，不支持时返回空串。
func Ext(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".tar.gz", ".tgz", ".tar.xz", ".txz"} {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// Extract 实现 Extractor。
func (e *TarExtractor) Extract(ctx context.Context, archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("archive: open: %w", err)
	}
	defer file.Close()

	var r io.Reader
	switch Ext(archivePath) {
	case ".tar.gz", ".tgz":
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("archive: gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case ".tar.xz", ".txz":
		xr, err := xz.NewReader(file)
		if err != nil {
			return fmt.Errorf("archive: xz reader: %w", err)
		}
		r = xr
	default:
		return fmt.Errorf("archive: unsupported format %s", filepath.Base(archivePath))
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("archive: prepare dest: %w", err)
	}
	return extractTar(ctx, tar.NewReader(r), dest)
}

func extractTar(ctx context.Context, tr *tar.Reader, dest string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: read entry: %w", err)
		}

		name := strings.TrimPrefix(filepath.Clean(filepath.FromSlash(header.Name)), string(os.PathSeparator))
		if name == "." || name == "" {
			continue
		}
		target, err := securejoin.SecureJoin(dest, name)
		if err != nil {
			return fmt.Errorf("archive: illegal path %q: %w", header.Name, err)
		}
		mode := os.FileMode(header.Mode).Perm()

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, mode|0o700); err != nil {
				return fmt.Errorf("archive: mkdir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(tr, target, mode); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dest, target, header.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			source, err := securejoin.SecureJoin(dest, header.Linkname)
			if err != nil {
				return fmt.Errorf("archive: illegal link %q: %w", header.Linkname, err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("archive: mkdir for link %s: %w", target, err)
			}
			if err := os.Link(source, target); err != nil {
				return fmt.Errorf("archive: link %s: %w", target, err)
			}
		case tar.TypeXGlobalHeader:
			continue
		default:
			return fmt.Errorf("archive: unsupported tar entry %q", header.Name)
		}
	}
}

func writeFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("archive: mkdir for file %s: %w", target, err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("archive: create file %s: %w", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("archive: copy file %s: %w", target, err)
	}
	return f.Close()
}

func writeSymlink(root, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("archive: absolute symlink %s -> %s", target, linkname)
	}
	resolved := filepath.Clean(filepath.Join(filepath.Dir(target), linkname))
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("archive: symlink escapes destination: %s -> %s", target, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("archive: mkdir for symlink %s: %w", target, err)
	}
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("archive: symlink %s: %w", target, err)
	}
	return nil
}
