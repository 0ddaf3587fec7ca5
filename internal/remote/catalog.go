package remote

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/liangyou/vodka/pkg/models"
)

const defaultFetchTimeout = 15 * time.Second

// CatalogFetcher 定义目录聚合能力。
type CatalogFetcher interface {
	FetchAll(ctx context.Context) []models.CatalogEntry
}

// CatalogOption 用于配置 Catalog。
type CatalogOption func(*Catalog)

// WithFetchTimeout 设置单个源的超时时间。
func WithFetchTimeout(timeout time.Duration) CatalogOption {
	return func(c *Catalog) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Catalog 并发查询所有源并合并结果。
type Catalog struct {
	sources []Source
	timeout time.Duration
}

// NewCatalog 创建目录聚合器。
func NewCatalog(sources []Source, opts ...CatalogOption) *Catalog {
	c := &Catalog{sources: sources, timeout: defaultFetchTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll 等待所有源完成后返回去重排序的目录。任何单个源失败都只会让它的结果缺席。
// 排序规则：source 升序，同一 source 内版本降序。
func (c *Catalog) FetchAll(ctx context.Context) []models.CatalogEntry {
	var (
		mu  sync.Mutex
		set = make(map[models.CatalogEntry]struct{})
		g   errgroup.Group
	)

	for _, src := range c.sources {
		g.Go(func() error {
			entries, err := c.fetchOne(ctx, src)
			if err != nil {
				log.Debug().Err(err).Str("source", src.Name()).Msg("catalog source skipped")
				return nil
			}
			mu.Lock()
			for _, e := range entries {
				set[e] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result := make([]models.CatalogEntry, 0, len(set))
	for e := range set {
		result = append(result, e)
	}
	slices.SortFunc(result, compareEntries)
	return result
}

func (c *Catalog) fetchOne(ctx context.Context, src Source) ([]models.CatalogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	entries, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
	}
	return entries, nil
}

func compareEntries(a, b models.CatalogEntry) int {
	if cmp := strings.Compare(string(a.Source), string(b.Source)); cmp != 0 {
		return cmp
	}
	if cmp := b.Version.Compare(a.Version); cmp != 0 {
		return cmp
	}
	return strings.Compare(a.DownloadURL, b.DownloadURL)
}
