// Package resolver 在一组候选版本中为目标版本挑选最合适的构建。
package resolver

import "github.com/liangyou/vodka/pkg/models"

// Resolve 只在与 target 同 major 的候选中按以下顺序选择：
// 精确匹配；不高于 target 的最高版本；该 major 下的最高版本。
// 没有同 major 候选时返回 false。
func Resolve(target models.Version, candidates []models.Version) (models.Version, bool) {
	var (
		lower, highest       models.Version
		hasLower, hasHighest bool
	)
	for _, c := range candidates {
		if c.Major != target.Major {
			continue
		}
		if c == target {
			return c, true
		}
		if !hasHighest || highest.Less(c) {
			highest, hasHighest = c, true
		}
		if c.Less(target) && (!hasLower || lower.Less(c)) {
			lower, hasLower = c, true
		}
	}
	if hasLower {
		return lower, true
	}
	return highest, hasHighest
}
