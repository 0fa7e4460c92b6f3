package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/retarget/internal/cli/config"
	"github.com/conduit-lang/retarget/internal/orm/hooks"
	"github.com/conduit-lang/retarget/internal/orm/loader"
	"github.com/conduit-lang/retarget/internal/orm/metadata"
	"github.com/conduit-lang/retarget/internal/orm/resolve"
	"github.com/conduit-lang/retarget/internal/orm/schema"
)

// workspace is the configured pipeline every command runs: config, target
// registry, resolve listener and metadata session
type workspace struct {
	cfg     *config.Config
	logger  *zap.Logger
	targets *resolve.TargetRegistry
	session *metadata.Session

	// originalTargets records each relationship's target as declared in the
	// mapping files, keyed by "Resource.field"
	originalTargets map[string]string
}

func newWorkspace(opts *globalOptions) (*workspace, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log.Level, opts.verbose)
	if err != nil {
		return nil, err
	}

	targets := resolve.NewTargetRegistry()
	cfg.RegisterTargets(targets)

	events := hooks.NewManager()
	events.AddListener(hooks.LoadMetadata, resolve.NewListener(targets, resolve.WithLogger(logger)))

	return &workspace{
		cfg:             cfg,
		logger:          logger,
		targets:         targets,
		session:         metadata.NewSession(events, metadata.WithLogger(logger)),
		originalTargets: make(map[string]string),
	}, nil
}

// newLogger builds a development logger when verbose, a production logger at
// level otherwise
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// load reads the mapping files named by args (or mapping.paths) and loads
// every resource into the session
func (w *workspace) load(ctx context.Context, args []string) ([]*schema.ResourceSchema, error) {
	files, err := w.cfg.MappingFiles(args)
	if err != nil {
		return nil, err
	}

	resources, err := loader.LoadFiles(files)
	if err != nil {
		return nil, err
	}

	for _, r := range resources {
		for _, rel := range r.Relationships.Snapshot() {
			w.originalTargets[r.Name+"."+rel.FieldName] = rel.TargetResource
		}
	}

	ordered := w.loadOrder(resources)
	if err := w.session.LoadAll(ctx, ordered); err != nil {
		return nil, err
	}
	return ordered, nil
}

// loadOrder moves the concrete targets of the registry to the front so their
// identifiers are known when referring resources are remapped. The order is
// otherwise kept.
func (w *workspace) loadOrder(resources []*schema.ResourceSchema) []*schema.ResourceSchema {
	concrete := make(map[string]bool)
	for _, abstract := range w.targets.AbstractTypes() {
		res, _ := w.targets.Lookup(abstract)
		concrete[res.ConcreteType] = true
	}

	ordered := make([]*schema.ResourceSchema, 0, len(resources))
	var rest []*schema.ResourceSchema
	for _, r := range resources {
		if concrete[resolve.Normalize(r.Name)] {
			ordered = append(ordered, r)
			continue
		}
		rest = append(rest, r)
	}
	return append(ordered, rest...)
}

// originalTarget returns the target rel was declared with
func (w *workspace) originalTarget(resource *schema.ResourceSchema, rel *schema.Relationship) string {
	if target, ok := w.originalTargets[resource.Name+"."+rel.FieldName]; ok {
		return target
	}
	return rel.TargetResource
}

func (w *workspace) close() {
	_ = w.logger.Sync()
}
