package migrate

import (
	"context"
	"slices"
	"strings"

	"github.com/roach88/schemasync/internal/policy"
	"github.com/roach88/schemasync/internal/schema"
)

// PlanAction says what a pass would do with a class.
type PlanAction string

const (
	// PlanCreate means the class does not exist and would be created.
	PlanCreate PlanAction = "create"
	// PlanUpdate means the class exists and is declared.
	PlanUpdate PlanAction = "update"
	// PlanLockPermissions means the class exists but is not declared; only
	// its permissions would be rewritten.
	PlanLockPermissions PlanAction = "lock_permissions"
)

// ClassPlan is the dry-run result for one class.
type ClassPlan struct {
	ClassName   string              `json:"className"`
	Action      PlanAction          `json:"action"`
	Changes     ChangeSet           `json:"changes"`
	Permissions *schema.Permissions `json:"classLevelPermissions"`
	// System marks built-in classes.
	System bool `json:"system,omitempty"`
}

// Plan enumerates live schemas and reports what Run would do, without any
// backend writes. Switches such as deleteExtraFields are not applied: the
// change sets are the raw differences.
func (r *Reconciler) Plan(ctx context.Context) ([]ClassPlan, error) {
	if err := r.checkDuplicates(); err != nil {
		return nil, err
	}

	live, err := r.backend.AllSchemas(ctx)
	if err != nil {
		return nil, &Error{Code: CodeStore, Message: "enumerate live schemas", Err: err}
	}

	plans := make([]ClassPlan, 0, len(r.declared)+len(live))
	for i := range r.declared {
		declared := &r.declared[i]
		current := schema.Find(live, declared.ClassName)

		p := ClassPlan{ClassName: declared.ClassName, Action: PlanCreate}
		var livePerms *schema.Permissions
		if current != nil {
			p.Action = PlanUpdate
			livePerms = current.Permissions
		}
		p.Changes = Diff(declared, current)
		p.Permissions, _ = MergePermissions(declared.Permissions, livePerms)
		plans = append(plans, p)
	}

	for i := range live {
		s := &live[i]
		if schema.Find(r.declared, s.ClassName) != nil {
			continue
		}
		perms, _ := MergePermissions(nil, s.Permissions)
		plans = append(plans, ClassPlan{
			ClassName:   s.ClassName,
			Action:      PlanLockPermissions,
			Permissions: perms,
			System:      policy.IsSystemClass(s.ClassName),
		})
	}

	slices.SortFunc(plans, func(a, b ClassPlan) int {
		return strings.Compare(a.ClassName, b.ClassName)
	})
	return plans, nil
}
