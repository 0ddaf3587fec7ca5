package storage

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liangyou/vodka/pkg/models"
)

// versionParts 是版本元数据的结构化编码。
type versionParts struct {
	Major *int `yaml:"major"`
	Minor *int `yaml:"minor"`
	Patch *int `yaml:"patch"`
}

// DecodeVersion 解析版本元数据文档。首选 {version: "9.21.0"}，
// 同时兼容数字编码 {version: 9.21}、结构编码 {version: {major, minor, patch}}
// 以及不带 version 键的裸文档。
func DecodeVersion(data []byte) (models.Version, error) {
	var doc struct {
		Version yaml.Node `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && doc.Version.Kind != 0 {
		return decodeVersionNode(&doc.Version)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return models.Version{}, fmt.Errorf("storage: decode version metadata: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return models.Version{}, errors.New("storage: empty version metadata")
	}
	return decodeVersionNode(root.Content[0])
}

func decodeVersionNode(node *yaml.Node) (models.Version, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return models.ParseVersion(node.Value)
	case yaml.MappingNode:
		var parts versionParts
		if err := node.Decode(&parts); err != nil {
			return models.Version{}, fmt.Errorf("storage: decode version parts: %w", err)
		}
		if parts.Major == nil {
			return models.Version{}, fmt.Errorf("storage: version mapping at line %d has no major", node.Line)
		}
		v := models.Version{Major: *parts.Major, Minor: valueOr(parts.Minor), Patch: valueOr(parts.Patch)}
		if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
			return models.Version{}, fmt.Errorf("storage: negative version component in %s", v)
		}
		return v, nil
	default:
		return models.Version{}, fmt.Errorf("storage: unsupported version encoding at line %d", node.Line)
	}
}

func valueOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// ReadVersionFile 读取并解析版本元数据文件。
func ReadVersionFile(path string) (models.Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Version{}, err
	}
	return DecodeVersion(data)
}

// WriteVersionFile 以首选编码写出版本元数据文件。
func WriteVersionFile(path string, v models.Version) error {
	data, err := yaml.Marshal(map[string]string{"version": v.String()})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
