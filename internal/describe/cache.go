package describe

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tinytelemetry/eventlens/internal/model"
)

// Cache fronts a DescriptionSource so that a process fetches at most once.
// A failed fetch is logged and every lookup falls back to NoExplanation.
type Cache struct {
	source  model.DescriptionSource
	timeout time.Duration

	once         sync.Once
	descriptions map[string]string
	err          error
}

var _ model.Describer = (*Cache)(nil)

// NewCache wraps source. A nil source yields a cache that never explains.
func NewCache(source model.DescriptionSource, timeout time.Duration) *Cache {
	if timeout <= 0 {
		timeout = model.DefaultDescribeTimeout
	}
	return &Cache{source: source, timeout: timeout}
}

func (c *Cache) load(ctx context.Context) {
	c.once.Do(func() {
		if c.source == nil {
			return
		}
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		c.descriptions, c.err = c.source.Descriptions(ctx)
		if c.err != nil {
			log.Printf("describe: descriptions unavailable: %v", c.err)
			return
		}
		log.Printf("describe: loaded %d descriptions", len(c.descriptions))
	})
}

// Lookup returns the description for id and whether one exists.
func (c *Cache) Lookup(ctx context.Context, id string) (string, bool) {
	c.load(ctx)
	text, ok := c.descriptions[strings.TrimSpace(id)]
	return text, ok
}

// Describe returns the description for id, or NoExplanation.
func (c *Cache) Describe(ctx context.Context, id string) string {
	if text, ok := c.Lookup(ctx, id); ok {
		return text
	}
	return model.NoExplanation
}

// Err triggers the fetch if needed and returns its error.
func (c *Cache) Err(ctx context.Context) error {
	c.load(ctx)
	return c.err
}
