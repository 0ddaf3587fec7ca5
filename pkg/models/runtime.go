package models

import "time"

// RuntimeSource 标识运行时构建的发布来源，仅用于展示与排序。
type RuntimeSource string

const (
	// SourceOfficial 表示官方源码发布（按最新 tag 构造下载地址）。
	SourceOfficial RuntimeSource = "official"
	// SourceCommunity 表示社区维护的预编译构建。
	SourceCommunity RuntimeSource = "community"
)

// CatalogEntry 是目录聚合的结果条目，按全部字段判等。
type CatalogEntry struct {
	Source      RuntimeSource
	Version     Version
	DownloadURL string
}

// InstalledRuntime 描述磁盘上的一个可用运行时。
type InstalledRuntime struct {
	Version  Version
	Root     string // 满足 RuntimeRoot 判定的目录
	Legacy   bool   // 来自旧版单槽位安装
	Verified bool   // 安装时是否完成了校验和比对
}

// RuntimeSelector 选择一个内置版本或用户提供的自定义路径，两者互斥。
type RuntimeSelector struct {
	Version    Version
	CustomPath string
}

// Builtin 构造选择内置版本的 RuntimeSelector。
func Builtin(v Version) RuntimeSelector {
	return RuntimeSelector{Version: v}
}

// Custom 构造选择自定义路径的 RuntimeSelector。
func Custom(path string) RuntimeSelector {
	return RuntimeSelector{CustomPath: path}
}

// IsCustom 报告是否为自定义运行时。
func (s RuntimeSelector) IsCustom() bool {
	return s.CustomPath != ""
}

// Progress 是下载过程中的一个进度采样。
type Progress struct {
	CompletedBytes int64
	TotalBytes     int64 // 未知时为 -1
	At             time.Time
}
