package hooks

import (
	"context"

	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// LoadMetadataEventArgs carries the resource whose metadata just loaded and
// the session it is loading into
type LoadMetadataEventArgs struct {
	ctx      context.Context
	metadata *schema.ResourceSchema
	session  Session
}

// NewLoadMetadataEventArgs creates the arguments of a LoadMetadata event
func NewLoadMetadataEventArgs(ctx context.Context, metadata *schema.ResourceSchema, session Session) *LoadMetadataEventArgs {
	if ctx == nil {
		ctx = context.Background()
	}
	return &LoadMetadataEventArgs{
		ctx:      ctx,
		metadata: metadata,
		session:  session,
	}
}

// Context returns the context of the load
func (a *LoadMetadataEventArgs) Context() context.Context {
	return a.ctx
}

// Metadata returns the resource being loaded
func (a *LoadMetadataEventArgs) Metadata() *schema.ResourceSchema {
	return a.metadata
}

// Session returns the session the resource is loading into
func (a *LoadMetadataEventArgs) Session() Session {
	return a.session
}
