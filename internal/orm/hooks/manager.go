package hooks

// Manager dispatches events to the listeners in its registry
type Manager struct {
	registry *Registry
}

// NewManager creates a new event manager
func NewManager() *Manager {
	return &Manager{
		registry: NewRegistry(),
	}
}

// AddListener registers a listener for an event
func (m *Manager) AddListener(event EventType, listener Listener) {
	m.registry.Register(event, listener)
}

// HasListeners returns true if any listener is registered for the event
func (m *Manager) HasListeners(event EventType) bool {
	return m.registry.HasListeners(event)
}

// DispatchLoadMetadata runs the LoadMetadata listeners in registration order.
// The first listener error stops dispatch and is returned as is so callers
// can match it.
func (m *Manager) DispatchLoadMetadata(args *LoadMetadataEventArgs) error {
	for _, listener := range m.registry.GetListeners(LoadMetadata) {
		if err := args.Context().Err(); err != nil {
			return err
		}
		if err := listener.OnMetadataLoaded(args); err != nil {
			return err
		}
	}
	return nil
}
