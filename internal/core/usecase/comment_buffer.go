package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

const (
	defaultCommentDebounce = 500 * time.Millisecond
	defaultCommentMax      = 256
	commentFlushTimeout    = 10 * time.Second
)

type commentKey struct {
	auditID  string
	category domain.CategoryKey
	key      string
}

type pendingComment struct {
	text  string
	gen   uint64
	seq   uint64
	timer *time.Timer
}

// CommentBuffer holds comment edits until the writer pauses, then persists
// the last text of each criterion. Entries are flushed on timer, on demand
// per audit, when the buffer grows past its bound, and on Close.
type CommentBuffer struct {
	repo  ports.AuditRepository
	delay time.Duration
	max   int

	// writeMu orders persisted writes so a stale text never lands after a
	// newer one for the same criterion.
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[commentKey]*pendingComment
	gen     uint64
	seq     uint64
	closed  bool
}

func NewCommentBuffer(repo ports.AuditRepository, delay time.Duration, max int) *CommentBuffer {
	if delay <= 0 {
		delay = defaultCommentDebounce
	}
	if max <= 0 {
		max = defaultCommentMax
	}
	return &CommentBuffer{
		repo:    repo,
		delay:   delay,
		max:     max,
		pending: make(map[commentKey]*pendingComment),
	}
}

// Set records the latest text for a criterion and restarts its debounce
// timer. After Close, writes go straight to the repository.
func (b *CommentBuffer) Set(ctx context.Context, auditID string, category domain.CategoryKey, key, text string) error {
	k := commentKey{auditID: auditID, category: category, key: key}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return b.write(ctx, k, text)
	}

	b.gen++
	gen := b.gen
	entry, ok := b.pending[k]
	if ok {
		entry.timer.Stop()
		entry.text = text
		entry.gen = gen
	} else {
		b.seq++
		entry = &pendingComment{text: text, gen: gen, seq: b.seq}
		b.pending[k] = entry
	}
	entry.timer = time.AfterFunc(b.delay, func() { b.flushExpired(k, gen) })

	var (
		evictKey commentKey
		evictGen uint64
		evict    bool
	)
	if len(b.pending) > b.max {
		evictKey, evictGen = b.oldestLocked()
		evict = true
	}
	b.mu.Unlock()

	if !evict {
		return nil
	}
	return b.drain(ctx, func(candidate commentKey, p *pendingComment) bool {
		return candidate == evictKey && p.gen == evictGen
	})
}

// Pending returns the buffered texts of an audit keyed by category then
// criterion.
func (b *CommentBuffer) Pending(auditID string) map[domain.CategoryKey]map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[domain.CategoryKey]map[string]string)
	for k, p := range b.pending {
		if k.auditID != auditID {
			continue
		}
		if out[k.category] == nil {
			out[k.category] = make(map[string]string)
		}
		out[k.category][k.key] = p.text
	}
	return out
}

// Overlay applies buffered texts to a loaded audit so reads observe edits
// that are not yet persisted.
func (b *CommentBuffer) Overlay(audit *domain.Audit) {
	if audit == nil {
		return
	}
	for category, texts := range b.Pending(audit.ID) {
		section := audit.Section(category)
		if section.Criteria == nil {
			section.Criteria = make(map[string]domain.Criterion, len(texts))
		}
		for key, text := range texts {
			section.Criteria[key] = section.Criteria[key].With(domain.FieldComment, text)
		}
		if audit.Sections == nil {
			audit.Sections = make(map[domain.CategoryKey]domain.CategorySection)
		}
		audit.Sections[category] = section
	}
}

// Flush persists every buffered comment of one audit.
func (b *CommentBuffer) Flush(ctx context.Context, auditID string) error {
	return b.drain(ctx, func(k commentKey, _ *pendingComment) bool {
		return k.auditID == auditID
	})
}

// Discard drops the buffered comments of an audit without writing them.
func (b *CommentBuffer) Discard(auditID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, p := range b.pending {
		if k.auditID == auditID {
			p.timer.Stop()
			delete(b.pending, k)
		}
	}
}

// Len reports the number of buffered entries.
func (b *CommentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close flushes everything and makes later writes synchronous.
func (b *CommentBuffer) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return b.drain(ctx, func(commentKey, *pendingComment) bool { return true })
}

func (b *CommentBuffer) flushExpired(k commentKey, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), commentFlushTimeout)
	defer cancel()
	err := b.drain(ctx, func(candidate commentKey, p *pendingComment) bool {
		return candidate == k && p.gen == gen
	})
	if err != nil {
		slog.Warn("comment_flush_failed",
			"audit_id", k.auditID,
			"category", string(k.category),
			"criterion", k.key,
			"error", err,
		)
	}
}

func (b *CommentBuffer) drain(ctx context.Context, match func(commentKey, *pendingComment) bool) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	type item struct {
		key  commentKey
		text string
		gen  uint64
		seq  uint64
	}

	b.mu.Lock()
	items := make([]item, 0)
	for k, p := range b.pending {
		if !match(k, p) {
			continue
		}
		p.timer.Stop()
		delete(b.pending, k)
		items = append(items, item{key: k, text: p.text, gen: p.gen, seq: p.seq})
	}
	b.mu.Unlock()

	var errs []error
	for _, it := range items {
		if err := b.write(ctx, it.key, it.text); err != nil {
			errs = append(errs, err)
			b.restore(it.key, it.text, it.gen, it.seq)
		}
	}
	return errors.Join(errs...)
}

// restore puts back an entry whose write failed. A newer Set for the same
// criterion wins over the failed text.
func (b *CommentBuffer) restore(k commentKey, text string, gen, seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[k]; ok {
		return
	}
	b.pending[k] = &pendingComment{
		text:  text,
		gen:   gen,
		seq:   seq,
		timer: time.AfterFunc(b.delay, func() { b.flushExpired(k, gen) }),
	}
}

func (b *CommentBuffer) write(ctx context.Context, k commentKey, text string) error {
	return b.repo.UpdateCriterionField(ctx, k.auditID, k.category, k.key, domain.FieldComment, text)
}

func (b *CommentBuffer) oldestLocked() (commentKey, uint64) {
	var (
		oldest    commentKey
		oldestGen uint64
		oldestSeq uint64
		found     bool
	)
	for k, p := range b.pending {
		if !found || p.seq < oldestSeq {
			oldest, oldestGen, oldestSeq, found = k, p.gen, p.seq, true
		}
	}
	return oldest, oldestGen
}
