package storage

import (
	"os"
	"path/filepath"

	"github.com/liangyou/vodka/pkg/models"
)

// IsRuntimeRoot 报告 dir/bin 中是否有可执行的 wine64 或 wine，且存在 wineserver。
// 这是安装与校验中唯一的运行时判定。
func IsRuntimeRoot(dir string) bool {
	return IsBinFolder(filepath.Join(dir, "bin"))
}

// IsBinFolder 报告 bin 是否同时包含 wine 可执行文件与 wineserver。
func IsBinFolder(bin string) bool {
	return len(missingInBin(bin)) == 0
}

// ValidateRuntimeRoot 在 dir 不满足运行时判定时返回列出缺失路径的 LayoutError。
func ValidateRuntimeRoot(dir string) error {
	missing := missingInBin(filepath.Join(dir, "bin"))
	if len(missing) == 0 {
		return nil
	}
	return &models.LayoutError{Root: dir, Missing: missing}
}

func missingInBin(bin string) []string {
	var missing []string
	if !isExecutable(filepath.Join(bin, "wine64")) && !isExecutable(filepath.Join(bin, "wine")) {
		missing = append(missing, filepath.Join(bin, "wine64")+" | "+filepath.Join(bin, "wine"))
	}
	if !exists(filepath.Join(bin, "wineserver")) {
		missing = append(missing, filepath.Join(bin, "wineserver"))
	}
	return missing
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
