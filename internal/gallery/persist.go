package gallery

import (
	"context"
	"sync"
	"time"

	"imagegallery/internal/logging"
)

// Persistence delays. Slider input fires often enough to deserve a shorter
// window; everything else coalesces over a full second.
const (
	PersistDelay       = 1000 * time.Millisecond
	PersistSliderDelay = 500 * time.Millisecond
)

// PersistKey scopes pending state to one panel instance so independent
// panels never collide.
type PersistKey struct {
	PanelID    string
	InstanceID string
}

// PersistSink receives the merged state once a debounce window closes.
// Delivery is best effort: the in-memory state stays authoritative for the
// session, so failures are logged and dropped.
type PersistSink interface {
	PersistUIState(ctx context.Context, panelID, instanceID string, state map[string]any) error
}

type pendingState struct {
	state map[string]any
	timer *time.Timer
}

// Persister coalesces rapid-fire state changes into infrequent sink calls.
// At most one outbound call per key per quiescent period; last values win
// per field.
type Persister struct {
	mu      sync.Mutex
	sink    PersistSink
	log     *logging.Logger
	pending map[PersistKey]*pendingState
	closed  bool
}

// NewPersister creates a persister delivering to the given sink.
func NewPersister(sink PersistSink, log *logging.Logger) *Persister {
	return &Persister{
		sink:    sink,
		log:     log,
		pending: make(map[PersistKey]*pendingState),
	}
}

// Schedule merges partial into the not-yet-flushed state for key (shallow
// merge, new fields win) and re-arms the general debounce timer.
func (p *Persister) Schedule(key PersistKey, partial map[string]any) {
	p.schedule(key, partial, PersistDelay)
}

// ScheduleFast is Schedule with the short delay used for high-frequency
// slider input.
func (p *Persister) ScheduleFast(key PersistKey, partial map[string]any) {
	p.schedule(key, partial, PersistSliderDelay)
}

func (p *Persister) schedule(key PersistKey, partial map[string]any, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	ent, ok := p.pending[key]
	if !ok {
		ent = &pendingState{state: make(map[string]any, len(partial))}
		p.pending[key] = ent
	} else if ent.timer != nil {
		ent.timer.Stop()
	}
	for k, v := range partial {
		ent.state[k] = v
	}
	ent.timer = time.AfterFunc(delay, func() { p.fire(key) })
}

func (p *Persister) fire(key PersistKey) {
	p.mu.Lock()
	ent, ok := p.pending[key]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, key)
	p.mu.Unlock()

	p.deliver(key, ent.state)
}

func (p *Persister) deliver(key PersistKey, state map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.sink.PersistUIState(ctx, key.PanelID, key.InstanceID, state); err != nil && p.log != nil {
		p.log.Warnf("ui state persist failed for %s/%s: %v", key.PanelID, key.InstanceID, err)
	}
}

// Flush delivers all pending state immediately. Used on teardown so the last
// session state is not lost to a cancelled timer.
func (p *Persister) Flush() {
	p.mu.Lock()
	entries := make(map[PersistKey]*pendingState, len(p.pending))
	for k, ent := range p.pending {
		if ent.timer != nil {
			ent.timer.Stop()
		}
		entries[k] = ent
	}
	p.pending = make(map[PersistKey]*pendingState)
	p.mu.Unlock()

	for k, ent := range entries {
		p.deliver(k, ent.state)
	}
}

// Close cancels every pending timer and rejects further scheduling. No
// callbacks fire after Close returns.
func (p *Persister) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for k, ent := range p.pending {
		if ent.timer != nil {
			ent.timer.Stop()
		}
		delete(p.pending, k)
	}
}

// PendingCount reports how many keys have undelivered state.
func (p *Persister) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
