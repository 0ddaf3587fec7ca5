package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnavailable 表示单个目录源不可用，只在目录聚合内部记录。
	ErrSourceUnavailable = errors.New("catalog source unavailable")
	// ErrChecksumUnavailable 表示无法获得期望校验和，安装继续但会给出警告。
	ErrChecksumUnavailable = errors.New("expected checksum unavailable")
	// ErrRuntimeNotInstalled 表示请求的内置版本未安装。
	ErrRuntimeNotInstalled = errors.New("runtime not installed")
	// ErrMissingWineBinaries 表示目录中找不到 wine 可执行文件。
	ErrMissingWineBinaries = errors.New("missing wine binaries")
)

// ChecksumMismatchError 表示下载内容与期望校验和不一致。
type ChecksumMismatchError struct {
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// LayoutError 表示安装后的目录缺少必需文件。
type LayoutError struct {
	Root    string
	Missing []string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("invalid runtime layout at %s: missing %s", e.Root, strings.Join(e.Missing, ", "))
}

func (e *LayoutError) Unwrap() error {
	return ErrMissingWineBinaries
}

// NotInstalledError 表示内置版本未安装。
type NotInstalledError struct {
	Version Version
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("runtime %s not installed", e.Version)
}

func (e *NotInstalledError) Unwrap() error {
	return ErrRuntimeNotInstalled
}

// InvalidCustomRuntimeError 表示自定义路径下没有任何候选目录满足运行时判定。
type InvalidCustomRuntimeError struct {
	Path   string
	Probed []string
}

func (e *InvalidCustomRuntimeError) Error() string {
	return fmt.Sprintf("missing wine binaries under %s (probed %s)", e.Path, strings.Join(e.Probed, ", "))
}

func (e *InvalidCustomRuntimeError) Unwrap() error {
	return ErrMissingWineBinaries
}
