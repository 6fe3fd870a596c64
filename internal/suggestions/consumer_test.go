package suggestions

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 40 * time.Millisecond

type recordingGenerator struct {
	mu      sync.Mutex
	calls   []*Context
	results []Suggestion
	err     error
	panics  bool
}

func (g *recordingGenerator) Generate(c *Context) ([]Suggestion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, c.Clone())
	if g.panics {
		panic("rule table corrupted")
	}
	if g.err != nil {
		return nil, g.err
	}
	return append([]Suggestion(nil), g.results...), nil
}

func (g *recordingGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *recordingGenerator) lastCall() *Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return nil
	}
	return g.calls[len(g.calls)-1]
}

func (g *recordingGenerator) set(results []Suggestion, err error, panics bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results = results
	g.err = err
	g.panics = panics
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Debounce = testDebounce
	return opts
}

func TestConsumerStartsIdle(t *testing.T) {
	c := NewConsumer(&recordingGenerator{}, testOptions())
	defer c.Close()

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.NotNil(t, snap.Suggestions)
	assert.Empty(t, snap.Suggestions)
}

func TestConsumerDebounceCoalescesBursts(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	c := NewConsumer(gen, testOptions())
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.SetContext(&Context{AssetID: "asset-1", Tags: []string{string(rune('a' + i))}})
		time.Sleep(testDebounce / 4)
	}

	require.Eventually(t, func() bool { return gen.callCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, []string{"e"}, gen.lastCall().Tags)

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Len(t, snap.Suggestions, len(sampleSuggestions()))
}

func TestConsumerNilContextNeverLoads(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	var mu sync.Mutex
	var seen []Snapshot
	opts := testOptions()
	opts.OnUpdate = func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}
	c := NewConsumer(gen, opts)
	defer c.Close()

	c.SetContext(nil)
	c.Refresh()
	time.Sleep(2 * testDebounce)

	assert.Equal(t, 0, gen.callCount())
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Suggestions)

	mu.Lock()
	defer mu.Unlock()
	for _, s := range seen {
		assert.False(t, s.Loading)
		assert.Empty(t, s.Error)
	}
}

func TestConsumerNilContextClearsList(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	c := NewConsumer(gen, testOptions())
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Refresh()
	require.NotEmpty(t, c.Snapshot().Suggestions)

	c.SetContext(nil)
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Suggestions)
	assert.Zero(t, snap.Stats.Total)
}

func TestConsumerNewContextCancelsPending(t *testing.T) {
	gen := &recordingGenerator{}
	opts := testOptions()
	opts.Debounce = 150 * time.Millisecond
	c := NewConsumer(gen, opts)
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1", Tags: []string{"first"}})
	time.Sleep(50 * time.Millisecond)
	c.SetContext(&Context{AssetID: "asset-1", Tags: []string{"second"}})

	require.Eventually(t, func() bool { return gen.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"second"}, gen.lastCall().Tags)
}

func TestConsumerZeroOptionsRegenerateAutomatically(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	c := NewConsumer(gen, Options{Debounce: 20 * time.Millisecond})
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})

	require.Eventually(t, func() bool { return c.Snapshot().State == StateReady }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, gen.callCount())
	assert.Len(t, c.Snapshot().Suggestions, len(sampleSuggestions()))
}

// blockingGenerator holds its first call until release is closed and echoes the first
// context tag as the suggestion id.
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *blockingGenerator) Generate(c *Context) ([]Suggestion, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.started)
		<-g.release
	}
	return []Suggestion{{ID: c.Tags[0], Type: TypeTechnique, Priority: PriorityHigh, Confidence: 50}}, nil
}

func TestConsumerDiscardsRunSupersededMidFlight(t *testing.T) {
	gen := newBlockingGenerator()
	var mu sync.Mutex
	var published [][]string
	opts := testOptions()
	opts.Debounce = 10 * time.Millisecond
	opts.OnUpdate = func(s Snapshot) {
		mu.Lock()
		published = append(published, ids(s.Suggestions))
		mu.Unlock()
	}
	c := NewConsumer(gen, opts)
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1", Tags: []string{"old"}})
	select {
	case <-gen.started:
	case <-time.After(time.Second):
		t.Fatal("first regeneration never started")
	}
	running := c.Snapshot()
	assert.Equal(t, StateLoading, running.State)
	assert.True(t, running.Loading)

	c.SetContext(&Context{AssetID: "asset-1", Tags: []string{"new"}})
	time.Sleep(5 * opts.Debounce)
	close(gen.release)

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.State == StateReady && !snap.Loading
	}, time.Second, 5*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, []string{"new"}, ids(snap.Suggestions))
	assert.Equal(t, uint64(1), snap.Generation)

	mu.Lock()
	defer mu.Unlock()
	for _, list := range published {
		assert.NotContains(t, list, "old")
	}
}

func TestConsumerRefreshRunsImmediately(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	opts := testOptions()
	opts.Debounce = time.Hour
	c := NewConsumer(gen, opts)
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Refresh()

	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, StateReady, c.Snapshot().State)
}

func TestConsumerManualRefresh(t *testing.T) {
	gen := &recordingGenerator{}
	opts := testOptions()
	opts.ManualRefresh = true
	c := NewConsumer(gen, opts)
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 0, gen.callCount())
	assert.Equal(t, "asset-1", c.Context().AssetID)

	c.Refresh()
	assert.Equal(t, 1, gen.callCount())
}

func TestConsumerAppliesFilters(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	opts := testOptions()
	opts.Types = []Type{TypeTechnique, TypePayload}
	opts.Priorities = []Priority{PriorityCritical, PriorityHigh}
	opts.MinConfidence = 60
	opts.MaxSuggestions = 1
	c := NewConsumer(gen, opts)
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Refresh()

	snap := c.Snapshot()
	assert.Equal(t, []string{"a"}, ids(snap.Suggestions))
	assert.Equal(t, 1, snap.Stats.Total)
	assert.Equal(t, 90.0, snap.Stats.AverageConfidence)
}

func TestConsumerErrorKeepsPreviousList(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	c := NewConsumer(gen, testOptions())
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Refresh()
	before := c.Snapshot()
	require.Equal(t, StateReady, before.State)

	gen.set(nil, errors.New("condition exploded"), false)
	c.Refresh()

	snap := c.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.False(t, snap.Loading)
	assert.Contains(t, snap.Error, "condition exploded")
	assert.Equal(t, ids(before.Suggestions), ids(snap.Suggestions))
	assert.Equal(t, before.Stats, snap.Stats)

	gen.set(sampleSuggestions()[:1], nil, false)
	c.Refresh()
	snap = c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Len(t, snap.Suggestions, 1)
	assert.NotEmpty(t, snap.Error, "error slot is only cleared explicitly")

	c.ClearError()
	assert.Empty(t, c.Snapshot().Error)
}

func TestConsumerClearErrorRestoresState(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	c := NewConsumer(gen, testOptions())
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Refresh()
	require.Equal(t, StateReady, c.Snapshot().State)

	gen.set(nil, errors.New("condition exploded"), false)
	c.Refresh()
	c.Refresh()
	require.Equal(t, StateErrored, c.Snapshot().State)

	c.ClearError()
	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.Suggestions, len(sampleSuggestions()))
}

func TestConsumerClearErrorFromFirstRunReturnsIdle(t *testing.T) {
	gen := &recordingGenerator{}
	gen.set(nil, errors.New("condition exploded"), false)
	c := NewConsumer(gen, testOptions())
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Refresh()
	require.Equal(t, StateErrored, c.Snapshot().State)

	c.ClearError()
	assert.Equal(t, StateIdle, c.Snapshot().State)
}

func TestConsumerRecoversPanics(t *testing.T) {
	gen := &recordingGenerator{}
	gen.set(nil, nil, true)
	c := NewConsumer(gen, testOptions())
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	assert.NotPanics(t, c.Refresh)

	snap := c.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Contains(t, snap.Error, "rule table corrupted")
	assert.Empty(t, snap.Suggestions)
}

func TestConsumerPublishesOncePerRegeneration(t *testing.T) {
	gen := &recordingGenerator{results: sampleSuggestions()}
	var mu sync.Mutex
	var states []State
	opts := testOptions()
	opts.OnUpdate = func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}
	c := NewConsumer(gen, opts)
	defer c.Close()

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Refresh()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateReady}, states)
}

func TestConsumerCloseStopsTimer(t *testing.T) {
	gen := &recordingGenerator{}
	c := NewConsumer(gen, testOptions())

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Close()
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 0, gen.callCount())

	c.SetContext(&Context{AssetID: "asset-1"})
	c.Refresh()
	assert.Equal(t, 0, gen.callCount())
}

func TestConsumerContextIsCopied(t *testing.T) {
	gen := &recordingGenerator{}
	opts := testOptions()
	opts.ManualRefresh = true
	c := NewConsumer(gen, opts)
	defer c.Close()

	in := &Context{AssetID: "asset-1", Tags: []string{"prod"}}
	c.SetContext(in)
	in.Tags[0] = "mutated"

	assert.Equal(t, []string{"prod"}, c.Context().Tags)
}
