// Package metadata loads resource schemas into a session, firing the
// LoadMetadata event for each one before it is cached.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/retarget/internal/orm/hooks"
	"github.com/conduit-lang/retarget/internal/orm/schema"
)

var (
	// ErrMetadataNotFound is returned when a resource has not been loaded
	ErrMetadataNotFound = errors.New("metadata not found")
	// ErrAlreadyLoaded is returned when a resource is loaded twice
	ErrAlreadyLoaded = errors.New("metadata already loaded")
)

// Session owns the loaded metadata of a set of resources
type Session struct {
	registry  *schema.Registry
	events    *hooks.Manager
	validator *schema.SchemaValidator
	logger    *zap.Logger
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger used for load diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry uses an existing schema registry as the metadata cache
func WithRegistry(registry *schema.Registry) Option {
	return func(s *Session) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// NewSession creates a session dispatching load events through events. A nil
// manager means no listeners.
func NewSession(events *hooks.Manager, opts ...Option) *Session {
	if events == nil {
		events = hooks.NewManager()
	}
	s := &Session{
		registry:  schema.NewRegistry(),
		events:    events,
		validator: schema.NewSchemaValidator(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MetadataFactory returns the session itself; it answers HasMetadataFor
func (s *Session) MetadataFactory() hooks.MetadataFactory {
	return s
}

// HasMetadataFor reports whether the resource has finished loading
func (s *Session) HasMetadataFor(name string) bool {
	return s.registry.Exists(name)
}

// GetMetadata returns the loaded metadata of a resource
func (s *Session) GetMetadata(name string) (*schema.ResourceSchema, error) {
	resource, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, name)
	}
	return resource, nil
}

// Registry returns the cache of loaded metadata
func (s *Session) Registry() *schema.Registry {
	return s.registry
}

// Load validates a resource, fires LoadMetadata and caches the result. The
// resource is not visible through HasMetadataFor while its own listeners
// run.
func (s *Session) Load(ctx context.Context, resource *schema.ResourceSchema) error {
	if resource == nil {
		return fmt.Errorf("resource cannot be nil")
	}
	if s.registry.Exists(resource.Name) {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, resource.Name)
	}
	if err := s.validator.ValidateStructural(resource); err != nil {
		return err
	}

	args := hooks.NewLoadMetadataEventArgs(ctx, resource, s)
	if err := s.events.DispatchLoadMetadata(args); err != nil {
		return err
	}

	if err := s.registry.Register(resource); err != nil {
		return err
	}

	s.logger.Debug("metadata loaded",
		zap.String("resource", resource.Name),
		zap.Int("relationships", resource.Relationships.Len()),
		zap.Strings("identifier", resource.Identifier),
	)
	return nil
}

// LoadAll loads resources in the given order and stops at the first failure
func (s *Session) LoadAll(ctx context.Context, resources []*schema.ResourceSchema) error {
	for i, resource := range resources {
		if resource == nil {
			return fmt.Errorf("resource %d cannot be nil", i)
		}
		if err := s.Load(ctx, resource); err != nil {
			return fmt.Errorf("loading metadata for %s: %w", resource.Name, err)
		}
	}
	s.logger.Info("metadata session ready", zap.Int("resources", s.registry.Count()))
	return nil
}
