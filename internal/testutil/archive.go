// Package testutil 为测试构造 tar 包与运行时目录布局。
package testutil

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ulikunitz/xz"
)

// Entry 描述 tar 包中的一项；Link 非空时写入符号链接。
type Entry struct {
	Name string
	Body string
	Mode int64
	Link string
}

// RuntimeEntries 返回位于 prefix 下、满足运行时判定的最小文件集合。
func RuntimeEntries(prefix string) []Entry {
	return []Entry{
		{Name: path.Join(prefix, "bin", "wine64"), Body: "wine64", Mode: 0o755},
		{Name: path.Join(prefix, "bin", "wineserver"), Body: "wineserver", Mode: 0o755},
		{Name: path.Join(prefix, "lib", "wine", "ntdll.so"), Body: "lib", Mode: 0o644},
	}
}

// TarGz 在临时目录中写出 .tar.gz 包并返回路径。
func TarGz(t *testing.T, entries ...Entry) string {
	t.Helper()
	return writeArchive(t, "runtime.tar.gz", func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriter(w), nil
	}, entries)
}

// TarXz 在临时目录中写出 .tar.xz 包并返回路径。
func TarXz(t *testing.T, entries ...Entry) string {
	t.Helper()
	return writeArchive(t, "runtime.tar.xz", func(w io.Writer) (io.WriteCloser, error) {
		return xz.NewWriter(w)
	}, entries)
}

func writeArchive(t *testing.T, name string, compress func(io.Writer) (io.WriteCloser, error), entries []Entry) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), name)
	file, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer file.Close()

	cw, err := compress(file)
	if err != nil {
		t.Fatalf("compressor: %v", err)
	}
	tw := tar.NewWriter(cw)

	seen := map[string]struct{}{}
	for _, e := range entries {
		writeParents(t, tw, e.Name, seen)
		writeEntry(t, tw, e)
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	return archivePath
}

func writeParents(t *testing.T, tw *tar.Writer, name string, seen map[string]struct{}) {
	t.Helper()

	var dirs []string
	for dir := path.Dir(name); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		hdr := &tar.Header{Name: dir + "/", Mode: 0o755, Typeflag: tar.TypeDir}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write dir header: %v", err)
		}
	}
}

func writeEntry(t *testing.T, tw *tar.Writer, e Entry) {
	t.Helper()

	if e.Link != "" {
		hdr := &tar.Header{Name: e.Name, Linkname: e.Link, Mode: 0o777, Typeflag: tar.TypeSymlink}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write symlink header: %v", err)
		}
		return
	}

	mode := e.Mode
	if mode == 0 {
		mode = 0o644
	}
	hdr := &tar.Header{Name: e.Name, Mode: mode, Size: int64(len(e.Body)), Typeflag: tar.TypeReg}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("write file header: %v", err)
	}
	if _, err := tw.Write([]byte(e.Body)); err != nil {
		t.Fatalf("write file content: %v", err)
	}
}

// MakeRuntime 在 root 下创建满足运行时判定的 bin 目录。
func MakeRuntime(t *testing.T, root string) {
	t.Helper()
	bin := filepath.Join(root, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", bin, err)
	}
	for _, name := range []string{"wine64", "wineserver"} {
		if err := os.WriteFile(filepath.Join(bin, name), []byte(name), 0o755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}
