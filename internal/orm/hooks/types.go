// Package hooks dispatches metadata lifecycle events to registered listeners.
package hooks

import (
	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// EventType identifies a metadata lifecycle event
type EventType int

const (
	// LoadMetadata fires once per resource after its relationships are
	// populated and before the resource is cached or used
	LoadMetadata EventType = iota
)

// String returns the string representation of the event type
func (e EventType) String() string {
	switch e {
	case LoadMetadata:
		return "load_metadata"
	default:
		return "unknown"
	}
}

// MetadataFactory reports which resources have finished loading
type MetadataFactory interface {
	HasMetadataFor(name string) bool
}

// Session gives listeners access to metadata that is already loaded
type Session interface {
	MetadataFactory() MetadataFactory
	GetMetadata(name string) (*schema.ResourceSchema, error)
}

// Listener handles LoadMetadata events
type Listener interface {
	OnMetadataLoaded(args *LoadMetadataEventArgs) error
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(args *LoadMetadataEventArgs) error

// OnMetadataLoaded calls f(args)
func (f ListenerFunc) OnMetadataLoaded(args *LoadMetadataEventArgs) error {
	return f(args)
}

// Registry keeps listeners per event type in registration order
type Registry struct {
	listeners map[EventType][]Listener
}

// NewRegistry creates a new listener registry
func NewRegistry() *Registry {
	return &Registry{
		listeners: make(map[EventType][]Listener),
	}
}

// Register adds a listener for the given event
func (r *Registry) Register(event EventType, listener Listener) {
	r.listeners[event] = append(r.listeners[event], listener)
}

// GetListeners returns all listeners for a given event
func (r *Registry) GetListeners(event EventType) []Listener {
	return r.listeners[event]
}

// HasListeners returns true if there are any listeners registered for the given event
func (r *Registry) HasListeners(event EventType) bool {
	return len(r.listeners[event]) > 0
}
