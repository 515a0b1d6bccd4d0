// Package lru keeps rendered report PDFs in memory, keyed by audit and
// invalidated whenever the audit changes.
package lru

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Observer is notified of cache lookups.
type Observer interface {
	RecordReportCache(hit bool)
}

type entry struct {
	version time.Time
	pdf     []byte
}

type ReportCache struct {
	cache    *expirable.LRU[string, entry]
	observer Observer
}

func NewReportCache(size int, ttl time.Duration, observer Observer) *ReportCache {
	if size <= 0 {
		size = 64
	}
	return &ReportCache{
		cache:    expirable.NewLRU[string, entry](size, nil, ttl),
		observer: observer,
	}
}

// Get returns the PDF rendered for exactly this audit version.
func (c *ReportCache) Get(auditID string, version time.Time) ([]byte, bool) {
	e, ok := c.cache.Get(auditID)
	hit := ok && e.version.Equal(version)
	if ok && !hit {
		c.cache.Remove(auditID)
	}
	if c.observer != nil {
		c.observer.RecordReportCache(hit)
	}
	if !hit {
		return nil, false
	}
	return e.pdf, true
}

func (c *ReportCache) Put(auditID string, version time.Time, pdf []byte) {
	c.cache.Add(auditID, entry{version: version, pdf: pdf})
}

func (c *ReportCache) Invalidate(auditID string) {
	c.cache.Remove(auditID)
}

func (c *ReportCache) Len() int {
	return c.cache.Len()
}
