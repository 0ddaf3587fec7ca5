package version

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/liangyou/vodka/pkg/models"
)

const hashChunkSize = 64 << 10

// Fetcher 读取小型文本资源。
type Fetcher interface {
	ReadAll(ctx context.Context, location string) ([]byte, error)
}

// Verifier 获取期望校验和并与本地文件比对。
type Verifier struct {
	fetcher Fetcher
}

// NewVerifier 创建 Verifier。
func NewVerifier(fetcher Fetcher) *Verifier {
	return &Verifier{fetcher: fetcher}
}

// ExpectedChecksum 尽力获取期望校验和；资源缺失或内容不合法时返回 false 而不是错误。
func (v *Verifier) ExpectedChecksum(ctx context.Context, location string) (string, bool) {
	data, err := v.fetcher.ReadAll(ctx, location)
	if err != nil {
		log.Debug().Err(err).Str("url", location).Msg("checksum resource unavailable")
		return "", false
	}
	sum, ok := ParseChecksum(string(data))
	if !ok {
		log.Debug().Str("url", location).Msg("checksum resource malformed")
	}
	return sum, ok
}

// Verify 比对文件与期望校验和。拿不到期望值时返回 (false, nil)，
// 不一致时返回 ChecksumMismatchError。
func (v *Verifier) Verify(ctx context.Context, archivePath, checksumLocation string) (bool, error) {
	expected, ok := v.ExpectedChecksum(ctx, checksumLocation)
	if !ok {
		log.Warn().Str("url", checksumLocation).Msg("expected checksum unavailable, skipping verification")
		return false, nil
	}
	actual, err := ActualChecksum(archivePath)
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(actual, expected) {
		return false, &models.ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return true, nil
}

// ParseChecksum 取第一个空白分隔的字段，要求恰好 64 个十六进制字符，返回小写形式。
func ParseChecksum(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	token := fields[0]
	if len(token) != sha256.Size*2 {
		return "", false
	}
	for _, ch := range token {
		if !strings.ContainsRune("0123456789abcdefABCDEF", ch) {
			return "", false
		}
	}
	return strings.ToLower(token), true
}

// ActualChecksum 以 64 KiB 分块计算文件的 SHA-256。
func ActualChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("verifier: open file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, struct{ io.Reader }{file}, buf); err != nil {
		return "", fmt.Errorf("verifier: hash file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
