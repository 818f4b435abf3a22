package core

import (
	"log/slog"
	"sync"

	"stakedrop/core/events"
	"stakedrop/core/types"
)

// eventBufferSize bounds the in-memory ring of recent events served over RPC.
const eventBufferSize = 256

// renderable is implemented by event payloads that can flatten themselves into
// the wire-facing attribute form.
type renderable interface {
	Event() *types.Event
}

// eventRecorder is the node's event sink: every engine event is logged and
// retained in a bounded ring for the events query endpoint.
type eventRecorder struct {
	mu     sync.Mutex
	log    *slog.Logger
	recent []*types.Event
}

func newEventRecorder(log *slog.Logger) *eventRecorder {
	return &eventRecorder{log: log}
}

// Emit implements events.Emitter.
func (r *eventRecorder) Emit(evt events.Event) {
	payload, ok := evt.(renderable)
	if !ok {
		return
	}
	rendered := payload.Event()
	if rendered == nil {
		return
	}
	if r.log != nil {
		attrs := make([]any, 0, len(rendered.Attributes)*2)
		for key, value := range rendered.Attributes {
			attrs = append(attrs, slog.String(key, value))
		}
		r.log.Info(rendered.Type, attrs...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = append(r.recent, rendered)
	if overflow := len(r.recent) - eventBufferSize; overflow > 0 {
		r.recent = append(r.recent[:0], r.recent[overflow:]...)
	}
}

// Recent returns up to limit of the most recent events, newest last.
func (r *eventRecorder) Recent(limit int) []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.recent) {
		limit = len(r.recent)
	}
	out := make([]*types.Event, limit)
	copy(out, r.recent[len(r.recent)-limit:])
	return out
}
