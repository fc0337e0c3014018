package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"doc_builder_app_go/services/cache"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// State is the phase of a document's print pagination.
type State int

const (
	StateStale State = iota
	StateMeasuring
	StatePaginated
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateStale:
		return "stale"
	case StateMeasuring:
		return "measuring"
	case StatePaginated:
		return "paginated"
	case StateFallback:
		return "fallback"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for _, candidate := range []State{StateStale, StateMeasuring, StatePaginated, StateFallback} {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown pagination state %q", b)
}

// ErrSuperseded is returned to waiters whose content version was replaced
// before it finished measuring.
var ErrSuperseded = errors.New("pagination superseded by newer content")

// MeasureRequest is the input handed to a height oracle.
type MeasureRequest struct {
	HTML      string
	Width     float64
	ItemCount int
}

// Measurer renders markup off-screen and reports marker heights.
type Measurer interface {
	Measure(ctx context.Context, req MeasureRequest) (MarkerReport, error)
}

// Snapshot identifies one content version of a document.
type Snapshot struct {
	Key       string
	Width     float64
	ItemCount int
	// Markup renders every line item on a single unpaginated page.
	Markup func(ctx context.Context) (string, error)
}

// Outcome is a resolved pagination. Pages holds item indices in order.
type Outcome struct {
	Key     string           `json:"key"`
	State   State            `json:"state"`
	Pages   [][]int          `json:"pages"`
	Heights *MeasuredHeights `json:"heights,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}

// TotalPages returns the number of printed pages.
func (o Outcome) TotalPages() int {
	return len(o.Pages)
}

// Options configures a Controller.
type Options struct {
	Layout   Layout
	Debounce time.Duration
	Timeout  time.Duration
	// Cache is shared between controllers. Nil disables caching.
	Cache cache.Cache[string, Outcome]
	// CacheTTL bounds how long a resolved outcome is reused.
	CacheTTL time.Duration
	// Observer is notified of resolved passes. Nil disables it.
	Observer Observer
}

// Observer receives pagination events, typically for metrics.
type Observer interface {
	ObserveMeasurement(state State, pages int, took time.Duration)
	ObserveCacheHit()
}

// Controller drives the Stale -> Measuring -> Paginated/Fallback state
// machine for a single document. Only the latest content version may commit.
type Controller struct {
	measurer Measurer
	opts     Options
	log      *zap.Logger

	mu         sync.Mutex
	state      State
	key        string
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	done       chan struct{}
	doneClosed bool
	outcome    *Outcome
	// retry is set when the committed fallback came from a transient failure
	retry  bool
	closed bool
}

// NewController creates a controller in the Stale state.
func NewController(measurer Measurer, opts Options, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Layout == (Layout{}) {
		opts.Layout = DefaultLayout()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Controller{
		measurer: measurer,
		opts:     opts,
		log:      log,
		state:    StateStale,
	}
}

// Schedule marks the document stale for a new content version and arms the
// debounced measurement. Scheduling the current version again is a no-op.
func (c *Controller) Schedule(snap Snapshot) {
	c.schedule(snap, c.opts.Debounce)
}

// Resolve measures snap without debouncing and waits for its outcome.
func (c *Controller) Resolve(ctx context.Context, snap Snapshot) (Outcome, error) {
	c.schedule(snap, 0)
	return c.Wait(ctx, snap.Key)
}

// Wait blocks until the content version key resolves.
func (c *Controller) Wait(ctx context.Context, key string) (Outcome, error) {
	c.mu.Lock()
	if c.key != key {
		c.mu.Unlock()
		return Outcome{}, ErrSuperseded
	}
	if c.outcome != nil {
		o := *c.outcome
		c.mu.Unlock()
		return o, nil
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != key || c.outcome == nil {
		return Outcome{}, ErrSuperseded
	}
	return *c.outcome, nil
}

// State reports the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the resolved outcome for the latest content version, if any.
func (c *Controller) Current() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Close stops pending work. Waiters are released with ErrSuperseded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.key = ""
	c.generation++
	c.supersedeLocked()
}

func (c *Controller) schedule(snap Snapshot, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	// A transient fallback does not settle the version, so it is measured again.
	if snap.Key == c.key && c.done != nil && !c.retry {
		// Same content. Pull a pending debounce forward if asked to.
		if delay == 0 && c.state == StateStale && c.timer != nil && c.timer.Stop() {
			gen := c.generation
			c.timer = nil
			go c.run(gen, snap)
		}
		return
	}

	c.supersedeLocked()
	c.generation++
	gen := c.generation
	c.key = snap.Key
	c.state = StateStale
	c.outcome = nil
	c.retry = false
	c.done = make(chan struct{})
	c.doneClosed = false

	if c.opts.Cache != nil {
		if cached, ok := c.opts.Cache.Get(snap.Key); ok {
			if c.opts.Observer != nil {
				c.opts.Observer.ObserveCacheHit()
			}
			c.commitLocked(cached)
			return
		}
	}

	if delay <= 0 {
		go c.run(gen, snap)
		return
	}
	c.timer = time.AfterFunc(delay, func() { c.run(gen, snap) })
}

// supersedeLocked drops the timer and in-flight pass of the previous version.
func (c *Controller) supersedeLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.done != nil && !c.doneClosed {
		close(c.done)
		c.doneClosed = true
	}
}

func (c *Controller) commitLocked(o Outcome) {
	c.outcome = &o
	c.state = o.State
	if c.done != nil && !c.doneClosed {
		close(c.done)
		c.doneClosed = true
	}
}

func (c *Controller) run(gen uint64, snap Snapshot) {
	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	c.cancel = cancel
	c.timer = nil
	c.state = StateMeasuring
	c.mu.Unlock()
	defer cancel()

	ctx, span := otel.Tracer("doc_builder_app_go/pagination").Start(ctx, "pagination.measure")
	defer span.End()
	span.SetAttributes(
		attribute.String("content_key", snap.Key),
		attribute.Int("items", snap.ItemCount),
		attribute.Float64("width", snap.Width),
	)

	started := time.Now()
	var (
		heights MeasuredHeights
		err     error
	)
	if snap.ItemCount > 0 {
		var report MarkerReport
		report, err = c.measure(ctx, snap)
		if err == nil {
			heights, err = report.Heights(snap.ItemCount)
		}
	}

	indices := make([]int, snap.ItemCount)
	for i := range indices {
		indices[i] = i
	}
	res := Paginate(c.opts.Layout, heights, err, indices)

	outcome := Outcome{
		Key:     snap.Key,
		State:   StatePaginated,
		Pages:   res.Pages,
		Heights: res.Heights,
		Reason:  res.Reason,
	}
	if res.Fallback {
		outcome.State = StateFallback
		if err != nil {
			span.RecordError(err)
		}
	}
	span.SetAttributes(
		attribute.String("state", outcome.State.String()),
		attribute.Int("pages", len(outcome.Pages)),
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.log.Debug("discarding superseded measurement", zap.String("key", snap.Key))
		return
	}
	c.cancel = nil

	if res.Fallback {
		c.log.Warn("pagination fell back to a single page",
			zap.String("key", snap.Key),
			zap.Int("items", snap.ItemCount),
			zap.Error(err))
	} else {
		c.log.Debug("pagination resolved",
			zap.String("key", snap.Key),
			zap.Int("items", snap.ItemCount),
			zap.Int("pages", len(outcome.Pages)),
			zap.Duration("took", time.Since(started)))
	}
	if c.opts.Observer != nil {
		c.opts.Observer.ObserveMeasurement(outcome.State, len(outcome.Pages), time.Since(started))
	}

	// Timeouts and cancellations are not properties of the content.
	if c.opts.Cache != nil && (!res.Fallback || errors.Is(err, ErrUnmeasurable)) {
		c.opts.Cache.Set(snap.Key, outcome, c.opts.CacheTTL)
	}
	c.commitLocked(outcome)
	c.retry = res.Fallback && err != nil && !errors.Is(err, ErrUnmeasurable)
}

// measure renders and measures snap, converting panics from collaborators
// into errors so the pass always resolves.
func (c *Controller) measure(ctx context.Context, snap Snapshot) (report MarkerReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("measurement panicked: %v", r)
		}
	}()

	html, err := snap.Markup(ctx)
	if err != nil {
		return MarkerReport{}, fmt.Errorf("failed to render measurement markup: %w", err)
	}
	return c.measurer.Measure(ctx, MeasureRequest{HTML: html, Width: snap.Width, ItemCount: snap.ItemCount})
}

// Split maps an outcome's index pages back onto items.
func Split[T any](items []T, pages [][]int) [][]T {
	out := make([][]T, len(pages))
	for p, indices := range pages {
		out[p] = make([]T, 0, len(indices))
		for _, i := range indices {
			if i >= 0 && i < len(items) {
				out[p] = append(out[p], items[i])
			}
		}
	}
	return out
}
