package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"nexiro/internal/domain"
)

// CachedAnalyzer memoizes results per image content so a source is analyzed
// once per upload and re-analyzed whenever its bytes change. Concurrent
// requests for the same image share one model call. Empty results are not
// cached.
type CachedAnalyzer struct {
	next  Analyzer
	cache *ristretto.Cache[string, domain.AnalysisResult]
	group singleflight.Group
}

func NewCachedAnalyzer(next Analyzer, size int) (*CachedAnalyzer, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, domain.AnalysisResult]{
		NumCounters: int64(size) * 10,
		MaxCost:     int64(size),
		BufferItems: 64,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis cache: %w", err)
	}
	return &CachedAnalyzer{next: next, cache: cache}, nil
}

func (c *CachedAnalyzer) Analyze(ctx context.Context, source domain.Image, tool domain.ToolType) domain.AnalysisResult {
	if source.Empty() {
		return domain.EmptyAnalysis()
	}
	key := cacheKey(string(tool), source)
	return c.load(key, func() domain.AnalysisResult {
		return c.next.Analyze(shared(ctx), source, tool)
	})
}

func (c *CachedAnalyzer) ReferenceProps(ctx context.Context, reference domain.Image) []string {
	if reference.Empty() {
		return []string{}
	}
	key := cacheKey("reference", reference)
	return c.load(key, func() domain.AnalysisResult {
		return domain.AnalysisResult{Props: c.next.ReferenceProps(shared(ctx), reference)}
	}).Props
}

func (c *CachedAnalyzer) load(key string, fn func() domain.AnalysisResult) domain.AnalysisResult {
	if hit, ok := c.cache.Get(key); ok {
		return clone(hit)
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		result := fn().Normalize()
		if !result.IsEmpty() {
			c.cache.Set(key, result, 1)
			c.cache.Wait()
		}
		return result, nil
	})
	return clone(v.(domain.AnalysisResult))
}

// shared detaches the call that concurrent waiters join from the first
// caller's cancellation. Model calls stay bounded by the client timeout.
func shared(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (c *CachedAnalyzer) Close() {
	c.cache.Close()
}

func cacheKey(scope string, img domain.Image) string {
	sum := sha256.Sum256(img.Data)
	return scope + ":" + hex.EncodeToString(sum[:])
}

// clone keeps callers from mutating the cached Props slice.
func clone(r domain.AnalysisResult) domain.AnalysisResult {
	props := make([]string, len(r.Props))
	copy(props, r.Props)
	return domain.AnalysisResult{Details: r.Details, Props: props}
}

var _ Analyzer = (*CachedAnalyzer)(nil)
