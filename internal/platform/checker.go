package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/liangyou/vodka/pkg/models"
)

var supportedOS = map[string]struct{}{
	"darwin": {},
	"linux":  {},
}

var supportedArch = map[string]struct{}{
	"amd64": {},
	"arm64": {},
}

// Checker 校验当前系统是否能够安装与运行 wine 运行时。
type Checker struct {
	cfg    models.Config
	goos   func() string
	goarch func() string
}

// NewChecker 创建平台检测器。
func NewChecker(cfg models.Config) *Checker {
	return &Checker{
		cfg:    cfg,
		goos:   func() string { return runtime.GOOS },
		goarch: func() string { return runtime.GOARCH },
	}
}

// Validate 校验当前平台，并确认多版本注册目录可以创建。
func (c *Checker) Validate() error {
	if _, ok := supportedOS[c.goos()]; !ok {
		return fmt.Errorf("platform: unsupported operating system %s", c.goos())
	}
	if _, ok := supportedArch[c.goarch()]; !ok {
		return fmt.Errorf("platform: unsupported architecture %s", c.goarch())
	}

	dir := c.runtimesDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("platform: cannot access runtimes directory %s: %w", dir, err)
	}
	return nil
}

func (c *Checker) runtimesDir() string {
	if c.cfg.RuntimesDir != "" {
		return c.cfg.RuntimesDir
	}
	root := c.cfg.RootDir
	if root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			root = filepath.Join(home, ".vodka")
		} else {
			root = filepath.Join(os.TempDir(), "vodka")
		}
	}
	return filepath.Join(root, "Runtimes")
}
