package suggestions

import (
	"fmt"
	"sync"
	"time"

	"secknow-backend/internal/shared/metrics"
	"secknow-backend/internal/shared/telemetry"
)

const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMaxSuggestions = 50
)

// State is the lifecycle position of a Consumer.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateErrored State = "errored"
)

// Generator produces suggestions for a context. *Engine is the production implementation.
type Generator interface {
	Generate(c *Context) ([]Suggestion, error)
}

// Options configures a Consumer. The zero value is usable: regeneration runs automatically
// and zero Debounce and MaxSuggestions are replaced by their defaults.
type Options struct {
	// ManualRefresh stores contexts without scheduling regeneration; only Refresh runs it.
	ManualRefresh  bool
	Debounce       time.Duration
	MaxSuggestions int
	Types          []Type
	MinConfidence  int
	Priorities     []Priority

	// OnUpdate, if set, receives a snapshot after every published change. It runs on the
	// goroutine that made the change and must not call back into the Consumer synchronously.
	OnUpdate func(Snapshot)
}

// DefaultOptions returns automatic regeneration with a 300ms debounce and at most 50
// suggestions.
func DefaultOptions() Options {
	return Options{
		Debounce:       DefaultDebounce,
		MaxSuggestions: DefaultMaxSuggestions,
	}
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = DefaultMaxSuggestions
	}
	if o.MinConfidence < MinConfidence {
		o.MinConfidence = MinConfidence
	}
	return o
}

func (o Options) filter() Filter {
	return Filter{
		Types:         append([]Type(nil), o.Types...),
		Priorities:    append([]Priority(nil), o.Priorities...),
		MinConfidence: o.MinConfidence,
		Max:           o.MaxSuggestions,
	}
}

// Snapshot is a point-in-time copy of a Consumer's observable state.
type Snapshot struct {
	State       State        `json:"state"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
	Suggestions []Suggestion `json:"suggestions"`
	Stats       Stats        `json:"stats"`
	Generation  uint64       `json:"generation"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Consumer adapts a Generator to a stream of context changes. Bursts of SetContext calls are
// coalesced: only a context left untouched for the full debounce interval is regenerated.
type Consumer struct {
	gen    Generator
	opts   Options
	filter Filter

	// runMu serializes regenerations so loading reflects exactly one run.
	runMu sync.Mutex

	mu          sync.Mutex
	current     *Context
	timer       *time.Timer
	seq         uint64
	state       State
	loading     bool
	items       []Suggestion
	stats       Stats
	errMsg      string
	beforeFault State
	generation  uint64
	updatedAt   time.Time
	closed      bool
}

// NewConsumer builds an idle Consumer.
func NewConsumer(gen Generator, opts Options) *Consumer {
	opts = opts.withDefaults()
	return &Consumer{
		gen:    gen,
		opts:   opts,
		filter: opts.filter(),
		state:  StateIdle,
		items:  []Suggestion{},
		stats:  ComputeStats(nil),
	}
}

// SetContext records a new context. Any pending regeneration is cancelled; unless
// ManualRefresh is set a new one is scheduled after the debounce interval. A nil context
// clears the list and returns the consumer to Idle without regenerating.
func (c *Consumer) SetContext(in *Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.seq++
	c.stopTimerLocked()

	if in == nil {
		c.current = nil
		c.items = []Suggestion{}
		c.stats = ComputeStats(nil)
		c.state = StateIdle
		c.updatedAt = time.Now().UTC()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	c.current = in.Clone()
	if !c.opts.ManualRefresh {
		seq := c.seq
		c.timer = time.AfterFunc(c.opts.Debounce, func() {
			c.fire(seq)
		})
	}
	c.mu.Unlock()
}

// Refresh cancels any pending debounce and regenerates immediately from the current context.
func (c *Consumer) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.seq++
	c.stopTimerLocked()
	seq := c.seq
	c.mu.Unlock()
	c.regenerate(seq)
}

// ClearError empties the error slot. An Errored consumer goes back to the state it held
// before the failing regeneration.
func (c *Consumer) ClearError() {
	c.mu.Lock()
	if c.errMsg == "" {
		c.mu.Unlock()
		return
	}
	c.errMsg = ""
	if c.state == StateErrored {
		c.state = c.beforeFault
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Snapshot returns the current observable state.
func (c *Consumer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Context returns a copy of the most recently supplied context.
func (c *Consumer) Context() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// Close cancels pending work. Later calls to SetContext and Refresh are ignored.
func (c *Consumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.seq++
	c.stopTimerLocked()
}

func (c *Consumer) fire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()
	c.regenerate(seq)
}

func (c *Consumer) regenerate(seq uint64) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	if c.closed || seq != c.seq || c.current == nil {
		c.mu.Unlock()
		return
	}
	input := c.current
	prevState := c.state
	c.state = StateLoading
	c.loading = true
	c.mu.Unlock()

	start := time.Now()
	items, err := c.run(input)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.loading = false
	if c.closed || seq != c.seq {
		// Superseded while running; the newer context owns the next transition.
		if c.state == StateLoading {
			c.state = prevState
		}
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.errMsg = "unable to generate suggestions: " + err.Error()
		if prevState != StateErrored {
			c.beforeFault = prevState
		}
		c.state = StateErrored
		metrics.ObserveSuggestionGeneration(metrics.OutcomeError, elapsed, 0)
		telemetry.Error("suggestions.regenerate_failed", map[string]any{
			"asset_id": input.AssetID,
			"error":    err.Error(),
		})
	} else {
		filtered := c.filter.Apply(items)
		c.items = filtered
		c.stats = ComputeStats(filtered)
		c.state = StateReady
		metrics.ObserveSuggestionGeneration(metrics.OutcomeOK, elapsed, len(filtered))
	}
	c.generation++
	c.updatedAt = time.Now().UTC()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Consumer) run(input *Context) (items []Suggestion, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			items = nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	if c.gen == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	return c.gen.Generate(input)
}

func (c *Consumer) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Consumer) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.state,
		Loading:     c.loading,
		Error:       c.errMsg,
		Suggestions: append([]Suggestion{}, c.items...),
		Stats:       c.stats,
		Generation:  c.generation,
		UpdatedAt:   c.updatedAt,
	}
}

func (c *Consumer) notify(snap Snapshot) {
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(snap)
	}
}
