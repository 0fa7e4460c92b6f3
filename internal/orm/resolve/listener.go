package resolve

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/retarget/internal/orm/hooks"
	"github.com/conduit-lang/retarget/internal/orm/mapping"
	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// ErrUnsupportedIdentifierNesting is returned when a composite identifier of a
// concrete target contains a relationship whose own identifier is built from
// further relationships. Only one level of flattening is supported.
var ErrUnsupportedIdentifierNesting = errors.New("unsupported identifier nesting")

// addOperations maps each relationship kind to the metadata operation that
// maps it
var addOperations = map[schema.RelationType]func(*schema.ResourceSchema, *schema.Relationship) error{
	schema.RelationshipManyToMany: (*schema.ResourceSchema).AddManyToMany,
	schema.RelationshipManyToOne:  (*schema.ResourceSchema).AddManyToOne,
	schema.RelationshipOneToMany:  (*schema.ResourceSchema).AddOneToMany,
	schema.RelationshipOneToOne:   (*schema.ResourceSchema).AddOneToOne,
}

// Listener rewrites relationships that target a registered abstract type
// when the owning resource's metadata loads. It holds no state besides the
// read-only target registry.
type Listener struct {
	targets *TargetRegistry
	logger  *zap.Logger
}

// ListenerOption configures a Listener
type ListenerOption func(*Listener)

// WithLogger sets the logger used to report each rewrite
func WithLogger(logger *zap.Logger) ListenerOption {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewListener creates a listener resolving against targets
func NewListener(targets *TargetRegistry, opts ...ListenerOption) *Listener {
	l := &Listener{
		targets: targets,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ hooks.Listener = (*Listener)(nil)

// OnMetadataLoaded remaps every relationship of the loaded resource whose
// target is registered. Relationships are walked over a snapshot because
// Remap removes and re-adds entries.
func (l *Listener) OnMetadataLoaded(args *hooks.LoadMetadataEventArgs) error {
	metadata := args.Metadata()
	for _, rel := range metadata.Relationships.Snapshot() {
		if _, ok := l.targets.Lookup(rel.TargetResource); !ok {
			continue
		}
		if err := l.Remap(metadata, rel, args.Session()); err != nil {
			return err
		}
	}
	return nil
}

// Remap replaces rel on metadata with a copy that targets the concrete type.
//
// When the concrete type is already loaded in session and has a composite
// identifier, one join column per identifier column is appended to the
// override's join columns. The override is then merged over rel, the field
// name is restored, and the result is mapped through the add operation for
// rel's kind. If that operation rejects the result, rel is mapped back and
// the rejection is returned unchanged.
func (l *Listener) Remap(metadata *schema.ResourceSchema, rel *schema.Relationship, session hooks.Session) error {
	res, ok := l.targets.Lookup(rel.TargetResource)
	if !ok {
		return nil
	}
	add, ok := addOperations[rel.Type]
	if !ok {
		return &schema.ValidationError{
			Resource: metadata.Name,
			Field:    rel.FieldName,
			Message:  fmt.Sprintf("unknown relationship type %d", rel.Type),
		}
	}

	overrides := res.Overrides.Clone()
	fieldName := rel.FieldName

	var synthesized []string
	if session != nil && session.MetadataFactory().HasMetadataFor(res.ConcreteType) {
		target, err := session.GetMetadata(res.ConcreteType)
		if err != nil {
			return err
		}
		if target.HasCompositeIdentifier() {
			cols, err := mappedIdentifiers(fieldName, target, session)
			if err != nil {
				return fmt.Errorf("resource %s: relationship %s: %w", metadata.Name, fieldName, err)
			}
			joinColumns := overrides.Get(schema.KeyJoinColumns)
			if !joinColumns.IsNull() && joinColumns.Kind() != mapping.KindSequence {
				return &schema.ValidationError{
					Resource: metadata.Name,
					Field:    fieldName,
					Message:  fmt.Sprintf("override %s must be a sequence, got %s", schema.KeyJoinColumns, joinColumns.Kind()),
				}
			}
			for _, col := range cols {
				entry := mapping.EmptyMapping()
				entry.Set(schema.KeyName, mapping.Scalar(col.Name))
				entry.Set(schema.KeyReferencedColumnName, mapping.Scalar(col.ReferencedColumnName))
				joinColumns.Append(entry)
				synthesized = append(synthesized, col.Name)
			}
			overrides.Set(schema.KeyJoinColumns, joinColumns)
		}
	}

	merged := mapping.Merge(rel.ToValue(), overrides)
	merged.Set(schema.KeyFieldName, mapping.Scalar(fieldName))

	resolved, err := schema.RelationshipFromValue(merged)
	if err != nil {
		return &schema.ValidationError{Resource: metadata.Name, Field: fieldName, Message: err.Error()}
	}
	// The kind is decided by the original definition, not the override
	resolved.Type = rel.Type

	metadata.RemoveRelationship(fieldName)
	if err := add(metadata, resolved); err != nil {
		if restoreErr := add(metadata, rel); restoreErr != nil {
			l.logger.Error("failed to restore relationship",
				zap.String("resource", metadata.Name),
				zap.String("field", fieldName),
				zap.Error(restoreErr),
			)
		}
		return err
	}

	l.logger.Debug("relationship target resolved",
		zap.String("resource", metadata.Name),
		zap.String("field", fieldName),
		zap.String("kind", rel.Type.String()),
		zap.String("from", rel.TargetResource),
		zap.String("to", resolved.TargetResource),
		zap.Strings("synthesized_join_columns", synthesized),
	)
	return nil
}

// mappedIdentifiers builds the join columns that reference every identifier
// column of target. Scalar components map to "{field}_{component}";
// relationship components are flattened one level into their own join
// columns, "{field}_{joinColumn}". A name is emitted once; later components
// producing the same name are skipped.
func mappedIdentifiers(fieldName string, target *schema.ResourceSchema, session hooks.Session) ([]schema.JoinColumn, error) {
	var cols []schema.JoinColumn
	seen := make(map[string]bool)
	emit := func(name, referenced string) {
		if seen[name] {
			return
		}
		seen[name] = true
		cols = append(cols, schema.JoinColumn{Name: name, ReferencedColumnName: referenced})
	}

	for _, id := range target.GetIdentifierComponents() {
		if !target.IsRelationshipComponent(id) {
			emit(fieldName+"_"+id, id)
			continue
		}

		nested, err := target.GetRelationship(id)
		if err != nil {
			return nil, err
		}
		if len(nested.JoinColumns) == 0 {
			return nil, fmt.Errorf("%w: identifier relationship %s.%s has no join columns",
				ErrUnsupportedIdentifierNesting, target.Name, id)
		}
		if session.MetadataFactory().HasMetadataFor(nested.TargetResource) {
			nestedTarget, err := session.GetMetadata(nested.TargetResource)
			if err != nil {
				return nil, err
			}
			for _, nestedID := range nestedTarget.GetIdentifierComponents() {
				if nestedTarget.IsRelationshipComponent(nestedID) {
					return nil, fmt.Errorf("%w: identifier relationship %s.%s targets %s whose identifier %s is itself a relationship",
						ErrUnsupportedIdentifierNesting, target.Name, id, nestedTarget.Name, nestedID)
				}
			}
		}
		for _, jc := range nested.JoinColumns {
			column := nested.JoinColumnFieldNames[jc.Name]
			if column == "" {
				column = jc.Name
			}
			emit(fieldName+"_"+column, column)
		}
	}
	return cols, nil
}
