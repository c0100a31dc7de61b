package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/schemasync/internal/policy"
	"github.com/roach88/schemasync/internal/schema"
)

// Backend is the schema store the reconciler drives. Payload field and
// index maps are deltas against the stored schema.
type Backend interface {
	// AllSchemas returns every class, system classes included.
	AllSchemas(ctx context.Context) ([]schema.Schema, error)

	// CreateSchema fails if className already exists.
	CreateSchema(ctx context.Context, className string, p schema.Payload) error

	// UpdateSchema fails if className does not exist.
	UpdateSchema(ctx context.Context, className string, p schema.Payload) error

	// CreateRecord inserts an empty record and returns its objectId.
	CreateRecord(ctx context.Context, className string) (string, error)

	// DeleteRecord removes a record created by CreateRecord.
	DeleteRecord(ctx context.Context, className, objectID string) error
}

// Reconciler runs reconciliation passes of a declared schema set against a
// Backend.
//
// Thread-safety: Run and Plan may be called from any goroutine, but
// concurrent passes against the same backend race on its state.
type Reconciler struct {
	backend  Backend
	declared []schema.Schema
	opts     options
}

// New creates a Reconciler. The declared slice is copied.
func New(backend Backend, declared []schema.Schema, opts ...Option) *Reconciler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	declaredCopy := make([]schema.Schema, len(declared))
	copy(declaredCopy, declared)

	return &Reconciler{
		backend:  backend,
		declared: declaredCopy,
		opts:     o,
	}
}

// Run performs one reconciliation pass, retried on store failures.
//
// Returned errors are *Error values. Run never terminates the process;
// deciding what a failure means is left to the caller.
func (r *Reconciler) Run(ctx context.Context) error {
	log := r.opts.logger.With("run_id", r.opts.ids.Generate())

	if err := r.checkDuplicates(); err != nil {
		log.Error("declared schemas are invalid", "error", err)
		return err
	}

	log.Info("running migrations", "classes", len(r.declared))

	if r.opts.beforeMigration != nil {
		if err := r.opts.beforeMigration(ctx); err != nil {
			return fmt.Errorf("before migration hook: %w", err)
		}
	}

	err := r.withRetry(ctx, log, func(ctx context.Context) error {
		return r.pass(ctx, log)
	})
	if err != nil {
		log.Error("migrations failed", "error", err)
		return err
	}

	if r.opts.afterMigration != nil {
		if err := r.opts.afterMigration(ctx); err != nil {
			return fmt.Errorf("after migration hook: %w", err)
		}
	}

	log.Info("migrations completed")
	return nil
}

func (r *Reconciler) checkDuplicates() error {
	if dups := schema.Duplicates(r.declared); len(dups) > 0 {
		return &Error{
			Code:    CodeDuplicateClass,
			Message: fmt.Sprintf("declared schemas contain duplicate className: %s", strings.Join(dups, ", ")),
		}
	}
	return nil
}

// pass is a single attempt: snapshot, per-class migration, strict report,
// permission floor.
func (r *Reconciler) pass(ctx context.Context, log *slog.Logger) error {
	live, err := r.snapshot(ctx)
	if err != nil {
		return err
	}

	byName := make(map[string]*schema.Schema, len(live))
	for i := range live {
		byName[live[i].ClassName] = &live[i]
	}

	// Every class task runs to completion even when a sibling fails.
	var g errgroup.Group
	for i := range r.declared {
		declared := &r.declared[i]
		g.Go(func() error {
			clog := log.With("class", declared.ClassName)
			var err error
			if current, ok := byName[declared.ClassName]; ok {
				err = r.updateClass(ctx, clog, declared, current)
			} else {
				err = r.createClass(ctx, clog, declared)
			}
			if err != nil {
				clog.Error("failed to migrate class", "error", err)
				return &Error{Code: CodeStore, Message: "migrate class", ClassName: declared.ClassName, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.reportUndeclared(log, live)
	return r.enforcePermissionFloor(ctx, log, live)
}

func (r *Reconciler) createClass(ctx context.Context, log *slog.Logger, declared *schema.Schema) error {
	cs := Diff(declared, nil)
	req := NewChangeRequest(declared.ClassName)

	for _, name := range cs.FieldsToAdd {
		if err := req.AddField(name, declared.Fields[name]); err != nil {
			return err
		}
	}
	for _, name := range cs.IndexesToAdd {
		req.AddIndex(name, declared.Indexes[name])
	}
	req.SetPermissions(r.mergePermissions(log, declared, nil))

	log.Info("creating class", "fields", len(cs.FieldsToAdd), "indexes", len(cs.IndexesToAdd))
	return req.Create(ctx, r.backend)
}

// updateClass flushes in up to four calls: extra-field deletions,
// type-change deletions, the main change set with permissions, and
// re-added redefined indexes.
func (r *Reconciler) updateClass(ctx context.Context, log *slog.Logger, declared, live *schema.Schema) error {
	cs := Diff(declared, live)
	req := NewChangeRequest(declared.ClassName)

	if len(cs.FieldsToDelete) > 0 {
		if r.opts.deleteExtraFields {
			for _, name := range cs.FieldsToDelete {
				req.DeleteField(name)
			}
			log.Info("deleting extra fields", "fields", cs.FieldsToDelete)
			if err := req.Update(ctx, r.backend); err != nil {
				return err
			}
		} else if r.opts.strict {
			for _, name := range cs.FieldsToDelete {
				log.Warn("field exists live but is not declared", "field", name)
			}
		}
	}

	recreate := len(cs.FieldsToRecreate) > 0 && r.opts.recreateModifiedFields
	if recreate {
		for _, fr := range cs.FieldsToRecreate {
			req.DeleteField(fr.Name)
		}
		log.Info("deleting fields with changed type", "fields", len(cs.FieldsToRecreate))
		if err := req.Update(ctx, r.backend); err != nil {
			return err
		}
	} else if r.opts.strict {
		for _, fr := range cs.FieldsToRecreate {
			log.Warn("field type differs from live, not recreated",
				"field", fr.Name,
				"declared", schema.DescribeType(fr.To),
				"live", schema.DescribeType(fr.From),
			)
		}
	}

	for _, name := range cs.FieldsToAdd {
		if err := req.AddField(name, declared.Fields[name]); err != nil {
			return err
		}
	}
	if recreate {
		for _, fr := range cs.FieldsToRecreate {
			if err := req.AddField(fr.Name, fr.To); err != nil {
				return err
			}
		}
	}
	for _, name := range cs.FieldsWithChangedParams {
		if err := req.AddField(name, declared.Fields[name]); err != nil {
			return err
		}
	}

	for _, name := range cs.IndexesToAdd {
		req.AddIndex(name, declared.Indexes[name])
	}
	if r.opts.deleteExtraFields {
		for _, name := range cs.IndexesToDelete {
			req.DeleteIndex(name)
		}
	} else if r.opts.strict {
		for _, name := range cs.IndexesToDelete {
			log.Warn("index exists live but is not declared", "index", name)
		}
	}
	for _, name := range cs.IndexesToReplace {
		req.DeleteIndex(name)
	}

	req.SetPermissions(r.mergePermissions(log, declared, live.Permissions))
	if err := req.Update(ctx, r.backend); err != nil {
		return err
	}

	if len(cs.IndexesToReplace) > 0 {
		for _, name := range cs.IndexesToReplace {
			req.AddIndex(name, declared.Indexes[name])
		}
		log.Info("re-adding redefined indexes", "indexes", cs.IndexesToReplace)
		if err := req.Update(ctx, r.backend); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) mergePermissions(log *slog.Logger, declared *schema.Schema, live *schema.Permissions) *schema.Permissions {
	merged, warn := MergePermissions(declared.Permissions, live)
	if warn {
		log.Warn("classLevelPermissions not provided, denying all access")
	}
	return merged
}

// reportUndeclared warns, in strict mode, about live classes that are
// neither declared nor built in.
func (r *Reconciler) reportUndeclared(log *slog.Logger, live []schema.Schema) {
	if !r.opts.strict {
		return
	}
	var missing []string
	for _, s := range live {
		if schema.Find(r.declared, s.ClassName) == nil && !policy.IsSystemClass(s.ClassName) {
			missing = append(missing, s.ClassName)
		}
	}
	if len(missing) > 0 {
		log.Warn("live classes are not declared", "classes", missing)
	}
}

// enforcePermissionFloor locks addField on every live class without a
// declaration, keeping its other rules. Classes created in this pass are
// not live at snapshot time and are never revisited here.
func (r *Reconciler) enforcePermissionFloor(ctx context.Context, log *slog.Logger, live []schema.Schema) error {
	for i := range live {
		s := &live[i]
		if schema.Find(r.declared, s.ClassName) != nil {
			continue
		}
		merged, _ := MergePermissions(nil, s.Permissions)
		req := NewChangeRequest(s.ClassName)
		req.SetPermissions(merged)

		log.Debug("locking permissions of undeclared class", "class", s.ClassName)
		if err := req.Update(ctx, r.backend); err != nil {
			log.Error("failed to lock permissions", "class", s.ClassName, "error", err)
			return &Error{Code: CodeStore, Message: "lock permissions", ClassName: s.ClassName, Err: err}
		}
	}
	return nil
}
