package vivint

import (
	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

// Listener receives an event payload. Payloads may be nil.
type Listener func(payload map[string]any)

// Entity is the observable base of every cloud-backed object: a raw
// attribute map straight off the wire, plus named-event listeners.
//
// Entities are mutated only from the push stream goroutine or during an
// explicit refresh; they are not safe for concurrent mutation.
type Entity struct {
	data      map[string]any
	listeners map[string][]listenerEntry
	nextID    int
	logger    *logging.Logger
}

type listenerEntry struct {
	id int
	fn Listener
}

func newEntity(data map[string]any, logger *logging.Logger) Entity {
	if data == nil {
		data = map[string]any{}
	}
	return Entity{
		data:      data,
		listeners: map[string][]listenerEntry{},
		logger:    logger,
	}
}

// Data returns the raw attribute map. Callers must not mutate it.
func (e *Entity) Data() map[string]any { return e.data }

// ID returns the entity's numeric id, or 0 when absent.
func (e *Entity) ID() int64 {
	id, _ := attrInt64(e.data, KeyID)
	return id
}

// UpdateData merges new attributes into the entity and emits an update
// event. With override set, the new map replaces the old one wholesale.
func (e *Entity) UpdateData(data map[string]any, override bool) {
	if override {
		e.data = data
	} else {
		for k, v := range data {
			e.data[k] = v
		}
	}
	e.Emit(EventUpdate, data)
}

// HandlePushUpdate applies a push message to the entity. The base behaviour
// is a merge; variants override it for message-specific handling.
func (e *Entity) HandlePushUpdate(data map[string]any) {
	e.UpdateData(data, false)
}

// On registers a listener for a named event and returns a function that
// removes it.
func (e *Entity) On(event string, fn Listener) func() {
	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], listenerEntry{id: id, fn: fn})
	return func() {
		entries := e.listeners[event]
		for i, entry := range entries {
			if entry.id == id {
				e.listeners[event] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Emit invokes every listener registered for the event. A panicking
// listener is logged and skipped; it never takes down the dispatch loop.
func (e *Entity) Emit(event string, payload map[string]any) {
	for _, entry := range e.listeners[event] {
		func() {
			defer func() {
				if r := recover(); r != nil && e.logger != nil {
					e.logger.Error("event listener panicked",
						"event", event,
						"panic", r)
				}
			}()
			entry.fn(payload)
		}()
	}
}
