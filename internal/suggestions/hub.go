package suggestions

import "sync"

// Hub keeps one Consumer per asset so context changes coming from different requests for the
// same asset are debounced together.
type Hub struct {
	gen  Generator
	opts Options

	mu        sync.RWMutex
	consumers map[string]*Consumer
	closed    bool
}

// NewHub builds a Hub whose consumers share gen and opts.
func NewHub(gen Generator, opts Options) *Hub {
	return &Hub{
		gen:       gen,
		opts:      opts,
		consumers: make(map[string]*Consumer),
	}
}

// Update feeds a new context for assetID, creating the consumer on first use.
func (h *Hub) Update(assetID string, c *Context) {
	consumer := h.consumer(assetID, true)
	if consumer == nil {
		return
	}
	consumer.SetContext(c)
}

// Prime makes sure assetID has a consumer holding c and regenerates it immediately when the
// consumer was just created. It reports whether a consumer was created.
func (h *Hub) Prime(assetID string, c *Context) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	if _, ok := h.consumers[assetID]; ok {
		h.mu.Unlock()
		return false
	}
	consumer := NewConsumer(h.gen, h.opts)
	h.consumers[assetID] = consumer
	h.mu.Unlock()

	consumer.SetContext(c)
	consumer.Refresh()
	return true
}

// Snapshot returns the state of assetID's consumer.
func (h *Hub) Snapshot(assetID string) (Snapshot, bool) {
	consumer := h.consumer(assetID, false)
	if consumer == nil {
		return Snapshot{}, false
	}
	return consumer.Snapshot(), true
}

// ClearError clears the stored error of assetID's consumer, if any.
func (h *Hub) ClearError(assetID string) bool {
	consumer := h.consumer(assetID, false)
	if consumer == nil {
		return false
	}
	consumer.ClearError()
	return true
}

// Remove tears down assetID's consumer.
func (h *Hub) Remove(assetID string) {
	h.mu.Lock()
	consumer, ok := h.consumers[assetID]
	delete(h.consumers, assetID)
	h.mu.Unlock()
	if ok {
		consumer.Close()
	}
}

// Len reports how many consumers are live.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.consumers)
}

// Close tears down every consumer; later updates are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	consumers := h.consumers
	h.consumers = make(map[string]*Consumer)
	h.closed = true
	h.mu.Unlock()
	for _, consumer := range consumers {
		consumer.Close()
	}
}

func (h *Hub) consumer(assetID string, create bool) *Consumer {
	h.mu.RLock()
	consumer, ok := h.consumers[assetID]
	closed := h.closed
	h.mu.RUnlock()
	if ok || !create || closed {
		return consumer
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	if consumer, ok := h.consumers[assetID]; ok {
		return consumer
	}
	consumer = NewConsumer(h.gen, h.opts)
	h.consumers[assetID] = consumer
	return consumer
}
