package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/conduit-lang/retarget/internal/orm/hooks"
	"github.com/conduit-lang/retarget/internal/orm/schema"
)

func newResource(name string) *schema.ResourceSchema {
	r := schema.NewResourceSchema(name)
	r.AddField(&schema.Field{Name: "id", Type: schema.TypeInt})
	r.Identifier = []string{"id"}
	return r
}

func TestSession_Load(t *testing.T) {
	events := hooks.NewManager()
	var visibleDuringDispatch bool
	var sawSession hooks.Session
	events.AddListener(hooks.LoadMetadata, hooks.ListenerFunc(func(args *hooks.LoadMetadataEventArgs) error {
		visibleDuringDispatch = args.Session().MetadataFactory().HasMetadataFor(args.Metadata().Name)
		sawSession = args.Session()
		return nil
	}))
	session := NewSession(events, WithLogger(zaptest.NewLogger(t)))

	order := newResource("Order")
	require.NoError(t, session.Load(context.Background(), order))

	assert.False(t, visibleDuringDispatch, "resource must not be cached while its listeners run")
	assert.Same(t, session, sawSession)
	assert.True(t, session.HasMetadataFor("Order"))

	got, err := session.GetMetadata("Order")
	require.NoError(t, err)
	assert.Same(t, order, got)
}

func TestSession_Load_Errors(t *testing.T) {
	t.Run("nil resource", func(t *testing.T) {
		assert.Error(t, NewSession(nil).Load(context.Background(), nil))
	})

	t.Run("already loaded", func(t *testing.T) {
		session := NewSession(nil)
		require.NoError(t, session.Load(context.Background(), newResource("Order")))
		err := session.Load(context.Background(), newResource("Order"))
		assert.True(t, errors.Is(err, ErrAlreadyLoaded))
	})

	t.Run("structural validation runs before listeners", func(t *testing.T) {
		events := hooks.NewManager()
		called := false
		events.AddListener(hooks.LoadMetadata, hooks.ListenerFunc(func(*hooks.LoadMetadataEventArgs) error {
			called = true
			return nil
		}))
		session := NewSession(events)

		err := session.Load(context.Background(), schema.NewResourceSchema("NoIdentifier"))
		require.Error(t, err)
		assert.False(t, called)
		assert.False(t, session.HasMetadataFor("NoIdentifier"))
	})

	t.Run("listener error is returned unchanged and nothing is cached", func(t *testing.T) {
		events := hooks.NewManager()
		listenerErr := &schema.ValidationError{Resource: "Order", Message: "rejected"}
		events.AddListener(hooks.LoadMetadata, hooks.ListenerFunc(func(*hooks.LoadMetadataEventArgs) error {
			return listenerErr
		}))
		session := NewSession(events)

		err := session.Load(context.Background(), newResource("Order"))
		assert.Same(t, listenerErr, err)
		assert.False(t, session.HasMetadataFor("Order"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		events := hooks.NewManager()
		events.AddListener(hooks.LoadMetadata, hooks.ListenerFunc(func(*hooks.LoadMetadataEventArgs) error {
			return nil
		}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewSession(events).Load(ctx, newResource("Order"))
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestSession_GetMetadata_NotFound(t *testing.T) {
	_, err := NewSession(nil).GetMetadata("Missing")
	assert.True(t, errors.Is(err, ErrMetadataNotFound))
}

func TestSession_LoadAll(t *testing.T) {
	events := hooks.NewManager()
	var order []string
	events.AddListener(hooks.LoadMetadata, hooks.ListenerFunc(func(args *hooks.LoadMetadataEventArgs) error {
		order = append(order, args.Metadata().Name)
		return nil
	}))

	registry := schema.NewRegistry()
	session := NewSession(events, WithRegistry(registry))
	require.NoError(t, session.LoadAll(context.Background(), []*schema.ResourceSchema{
		newResource("Customer"), newResource("Order"),
	}))

	assert.Equal(t, []string{"Customer", "Order"}, order)
	assert.Same(t, registry, session.Registry())
	assert.Equal(t, 2, registry.Count())

	err := session.LoadAll(context.Background(), []*schema.ResourceSchema{newResource("Tag"), newResource("Order")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading metadata for Order")
	assert.True(t, errors.Is(err, ErrAlreadyLoaded))
	assert.True(t, session.HasMetadataFor("Tag"))

	err = session.LoadAll(context.Background(), []*schema.ResourceSchema{nil})
	assert.Error(t, err)
}
