package models

import "time"

// Config 保存 vodka 的全局配置，启动时构造一次后按值传递给各组件。
type Config struct {
	RootDir      string // vodka 根目录，默认 ~/.vodka
	LibrariesDir string // 旧版单槽位安装目录，默认 <root>/Libraries
	RuntimesDir  string // 多版本注册目录，默认 <root>/Runtimes

	LocalFeed string // 本地 feed 目录，设置后覆盖 BaseURL
	BaseURL   string // 主发行包、校验和与版本元数据的远程基址

	TagsURL        string    // 官方 tag 列表
	ReleasesURL    string    // 社区 release 列表
	SourcePattern  string    // 官方下载地址模板，支持 {major} 与 {version}
	AssetIdent     string    // 社区资产名前缀，例如 "wine"
	TargetVersions []Version // 在社区源上查找的目标版本

	FetchTimeout    time.Duration
	DownloadTimeout time.Duration
}
