package store

import (
	"context"
	"sync"
	"time"

	"github.com/msomdec/startup-scout/internal/domain"
)

// DefaultDebounce is the quiet period after the last filter edit before the
// catalog is fetched.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs only the most recent of a burst of calls. Each call
// cancels the one still waiting before it.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	pending chan struct{}
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Do waits for the quiet period and then runs fn, unless another call
// arrived in the meantime or ctx ended. It reports whether fn ran.
func (d *Debouncer) Do(ctx context.Context, fn func()) bool {
	d.mu.Lock()
	if d.pending != nil {
		close(d.pending)
	}
	d.seq++
	seq := d.seq
	cancelled := make(chan struct{})
	d.pending = cancelled
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-cancelled:
		return false
	case <-ctx.Done():
		d.release(seq)
		return false
	}

	d.mu.Lock()
	if d.seq != seq {
		d.mu.Unlock()
		return false
	}
	d.pending = nil
	d.mu.Unlock()

	fn()
	return true
}

// Pending reports whether a call is waiting out the quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Cancel drops the waiting call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		close(d.pending)
		d.pending = nil
	}
	d.seq++
}

func (d *Debouncer) release(seq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seq == seq {
		d.pending = nil
	}
}

// FilterController applies the view's fetch policy: edits to the search
// fields are debounced, page changes fetch at once.
type FilterController struct {
	catalog   *Catalog
	debouncer *Debouncer
}

// NewFilterController creates a FilterController over catalog.
func NewFilterController(catalog *Catalog, debouncer *Debouncer) *FilterController {
	if debouncer == nil {
		debouncer = NewDebouncer(DefaultDebounce)
	}
	return &FilterController{catalog: catalog, debouncer: debouncer}
}

// ChangeFilters records patch (resetting to page 1) and fetches once the
// input has been quiet for the debounce period. It reports whether this
// call performed the fetch.
func (c *FilterController) ChangeFilters(ctx context.Context, patch domain.FilterPatch) bool {
	c.catalog.SetFilters(patch)
	return c.debouncer.Do(ctx, func() {
		c.catalog.FetchStartups(ctx, nil)
	})
}

// ChangePage moves to page and fetches immediately.
func (c *FilterController) ChangePage(ctx context.Context, page int) {
	c.catalog.SetPage(page)
	c.catalog.FetchStartups(ctx, nil)
}

// Clear resets the filters and fetches immediately, dropping any pending
// debounced fetch.
func (c *FilterController) Clear(ctx context.Context) {
	c.debouncer.Cancel()
	c.catalog.ClearFilters()
	c.catalog.FetchStartups(ctx, nil)
}
