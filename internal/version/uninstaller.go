package version

import (
	"errors"
	"fmt"
	"os"

	"github.com/liangyou/vodka/internal/storage"
	"github.com/liangyou/vodka/pkg/models"
)

// Uninstaller 删除多版本注册目录中的运行时。
type Uninstaller struct {
	registry storage.Registry
}

// NewUninstaller 创建卸载器。
func NewUninstaller(registry storage.Registry) *Uninstaller {
	return &Uninstaller{registry: registry}
}

// Uninstall 删除指定版本的槽位并返回剩余版本。旧版单槽位不会被删除。
func (u *Uninstaller) Uninstall(version models.Version) ([]models.Version, error) {
	if u.registry == nil {
		return nil, errors.New("uninstaller: registry is required")
	}

	unlock := u.registry.Lock(version)
	versionDir := u.registry.VersionDir(version)
	_, err := os.Stat(versionDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		unlock()
		if u.registry.IsInstalled(version) {
			return nil, fmt.Errorf("uninstaller: %s is a legacy installation and cannot be removed", version)
		}
		return nil, fmt.Errorf("uninstaller: %w", &models.NotInstalledError{Version: version})
	case err != nil:
		unlock()
		return nil, fmt.Errorf("uninstaller: stat %s: %w", versionDir, err)
	}

	removeErr := os.RemoveAll(versionDir)
	unlock()
	if removeErr != nil {
		return nil, fmt.Errorf("uninstaller: remove dir: %w", removeErr)
	}

	remaining, err := u.registry.AvailableVersions()
	if err != nil {
		return nil, fmt.Errorf("uninstaller: reload versions: %w", err)
	}
	return remaining, nil
}
