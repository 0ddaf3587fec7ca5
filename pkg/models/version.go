package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version 表示 wine 运行时的语义化版本，只保留 major.minor.patch。
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion 解析 "9.21"、"9.21.0"、"v9.21.0" 等形式的版本号。
// 预发布与构建后缀会被丢弃。
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, fmt.Errorf("models: empty version")
	}
	sv, err := semver.NewVersion(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("models: parse version %q: %w", s, err)
	}
	for _, n := range []uint64{sv.Major(), sv.Minor(), sv.Patch()} {
		if n > math.MaxInt {
			return Version{}, fmt.Errorf("models: version component out of range in %q", s)
		}
	}
	return Version{Major: int(sv.Major()), Minor: int(sv.Minor()), Patch: int(sv.Patch())}, nil
}

// MustParseVersion 与 ParseVersion 相同，解析失败时 panic，仅用于常量与测试。
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare 按 (major, minor, patch) 字典序比较，返回 -1、0 或 1。
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		return cmpInt(v.Major, o.Major)
	}
	if v.Minor != o.Minor {
		return cmpInt(v.Minor, o.Minor)
	}
	return cmpInt(v.Patch, o.Patch)
}

// Less 报告 v 是否严格小于 o。
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// IsZero 报告版本是否为零值。
func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func cmpInt(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
