// Package tablestate keeps a displayed grid page consistent with its filter,
// sort and pagination state while pages are fetched in the background.
package tablestate

import (
	"context"
	"net/url"
	"slices"
	"sync"
	"time"

	"corpusdash/internal/domain"
	"corpusdash/internal/query"
)

const DefaultTimeout = 15 * time.Second

type Pagination struct {
	PageIndex int
	PageSize  int
}

type State struct {
	ColumnFilters []domain.Filter
	GlobalFilter  string
	Sorting       []domain.Sort
	Pagination    Pagination
}

// Params converts the state into request parameters.
func (s State) Params() query.Params {
	size := s.Pagination.PageSize
	if size <= 0 {
		size = query.DefaultSize
	}
	return query.Params{
		Start:        query.PageStart(s.Pagination.PageIndex, size),
		Size:         size,
		Filters:      slices.Clone(s.ColumnFilters),
		GlobalFilter: s.GlobalFilter,
		Sorting:      slices.Clone(s.Sorting),
	}
}

func (s State) clone() State {
	s.ColumnFilters = slices.Clone(s.ColumnFilters)
	s.Sorting = slices.Clone(s.Sorting)
	return s
}

// View is what a table renders.
type View struct {
	State    State
	Rows     []domain.Row
	Keys     []string
	KeyField string
	RowCount int64

	IsLoading    bool
	IsRefetching bool
	IsError      bool
	Err          error
}

// Fetcher loads one page of a view. Client is the HTTP implementation.
type Fetcher interface {
	FetchPage(ctx context.Context, view string, p query.Params, extra url.Values) (domain.PageResponse, error)
}

type Options struct {
	// View is the API route, e.g. "data" or "dataDeep".
	View string
	// Extra parameters sent with every request, e.g. path for dataset views.
	Extra   url.Values
	Initial State
	Timeout time.Duration
	// OnChange receives every new View in order. It must not call back into
	// the controller synchronously.
	OnChange func(View)
}

// Controller owns the state of one table. Every state change issues a fetch
// tagged with a new token and cancels the previous one; only the response
// carrying the latest token is applied.
type Controller struct {
	fetcher Fetcher
	opts    Options

	mu       sync.Mutex
	idle     *sync.Cond
	state    State
	view     View
	token    uint64
	cancel   context.CancelFunc
	inflight int
	loaded   bool
	closed   bool
	version  uint64

	notifyMu  sync.Mutex
	delivered uint64
}

func New(f Fetcher, opts Options) *Controller {
	c := &Controller{fetcher: f, opts: opts, state: opts.Initial.clone()}
	if c.state.Pagination.PageSize <= 0 {
		c.state.Pagination.PageSize = query.DefaultSize
	}
	c.idle = sync.NewCond(&c.mu)
	c.view.State = c.state.clone()
	return c
}

func (c *Controller) timeout() time.Duration {
	if c.opts.Timeout > 0 {
		return c.opts.Timeout
	}
	return DefaultTimeout
}

// Load fetches the page for the current state.
func (c *Controller) Load() {
	c.Update(func(*State) {})
}

func (c *Controller) SetColumnFilters(filters []domain.Filter) {
	c.Update(func(s *State) { s.ColumnFilters = slices.Clone(filters) })
}

func (c *Controller) SetGlobalFilter(q string) {
	c.Update(func(s *State) { s.GlobalFilter = q })
}

func (c *Controller) SetSorting(sorting []domain.Sort) {
	c.Update(func(s *State) { s.Sorting = slices.Clone(sorting) })
}

func (c *Controller) SetPagination(p Pagination) {
	c.Update(func(s *State) { s.Pagination = p })
}

// Update applies several changes at once and schedules a single fetch.
func (c *Controller) Update(fn func(*State)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	next := c.state.clone()
	fn(&next)
	if next.Pagination.PageSize <= 0 {
		next.Pagination.PageSize = query.DefaultSize
	}
	if next.Pagination.PageIndex < 0 {
		next.Pagination.PageIndex = 0
	}
	c.state = next

	if c.cancel != nil {
		c.cancel()
	}
	c.token++
	token := c.token
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
	c.cancel = cancel

	c.view.State = next.clone()
	if c.loaded {
		c.view.IsRefetching = true
		c.view.IsLoading = false
	} else {
		c.view.IsLoading = true
	}
	c.inflight++
	version, snap := c.snapshotLocked()
	params := next.Params()
	c.mu.Unlock()

	c.deliver(version, snap)
	go c.fetch(ctx, cancel, token, params)
}

func (c *Controller) fetch(ctx context.Context, cancel context.CancelFunc, token uint64, p query.Params) {
	defer cancel()
	page, err := c.fetcher.FetchPage(ctx, c.opts.View, p, c.opts.Extra)

	c.mu.Lock()
	if token != c.token || c.closed {
		c.doneLocked()
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	c.view.IsLoading = false
	c.view.IsRefetching = false
	if err != nil {
		c.view.IsError = true
		c.view.Err = err
	} else {
		c.loaded = true
		c.view.IsError = false
		c.view.Err = nil
		c.view.Rows = page.Data
		c.view.RowCount = page.Meta.TotalRowCount
		c.view.Keys, c.view.KeyField = RowKeys(page.Data, p.Start)
	}
	version, snap := c.snapshotLocked()
	c.mu.Unlock()

	c.deliver(version, snap)

	c.mu.Lock()
	c.doneLocked()
	c.mu.Unlock()
}

func (c *Controller) doneLocked() {
	c.inflight--
	if c.inflight == 0 {
		c.idle.Broadcast()
	}
}

func (c *Controller) snapshotLocked() (uint64, View) {
	c.version++
	v := c.view
	v.State = c.view.State.clone()
	v.Keys = slices.Clone(c.view.Keys)
	return c.version, v
}

// deliver hands v to OnChange unless a newer view was already delivered.
func (c *Controller) deliver(version uint64, v View) {
	if c.opts.OnChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if version <= c.delivered {
		return
	}
	c.delivered = version
	c.opts.OnChange(v)
}

// State returns a copy of the current table state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// View returns the latest view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	v.State = c.view.State.clone()
	v.Keys = slices.Clone(c.view.Keys)
	return v
}

// Wait blocks until no fetch is in flight.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.inflight > 0 {
		c.idle.Wait()
	}
}

// Close cancels any in-flight fetch and ignores later state changes.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
