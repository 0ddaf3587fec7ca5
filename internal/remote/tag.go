package remote

import (
	"strings"

	"github.com/liangyou/vodka/pkg/models"
)

// NormalizeTag 去掉 "wine-" 与 "v" 前缀，只保留开头连续的数字与点。
// 例如 "wine-9.21" -> "9.21"，"wine-8.0.1-rc1" -> "8.0.1"。
func NormalizeTag(tag string) (string, bool) {
	value := strings.TrimSpace(tag)
	value = strings.TrimPrefix(value, "wine-")
	value = strings.TrimPrefix(value, "v")

	end := 0
	for end < len(value) && (value[end] == '.' || (value[end] >= '0' && value[end] <= '9')) {
		end++
	}
	if end == 0 {
		return "", false
	}
	return value[:end], true
}

// ParseTag 规范化 tag 并解析为 Version。
func ParseTag(tag string) (models.Version, bool) {
	normalized, ok := NormalizeTag(tag)
	if !ok {
		return models.Version{}, false
	}
	v, err := models.ParseVersion(normalized)
	if err != nil {
		return models.Version{}, false
	}
	return v, true
}
