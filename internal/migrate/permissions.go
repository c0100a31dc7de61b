package migrate

import (
	"slices"

	"github.com/roach88/schemasync/internal/schema"
)

// mergedActions are resolved declared → live → deny all. addField is not
// among them: it is always locked.
var mergedActions = []schema.Action{
	schema.ActionFind,
	schema.ActionCount,
	schema.ActionGet,
	schema.ActionCreate,
	schema.ActionUpdate,
	schema.ActionDelete,
}

// MergePermissions builds the permission document submitted for a class.
//
// Each query and write action takes the declared rule when present, else
// the live rule, else {"*": false}. addField is always {} so no client can
// add fields out of band. protectedFields comes from the declaration when
// given, otherwise from live.
//
// warn is true when neither side has any permissions; the result is then
// deny-all apart from the locked addField.
func MergePermissions(declared, live *schema.Permissions) (merged *schema.Permissions, warn bool) {
	merged = &schema.Permissions{
		Rules: make(map[schema.Action]schema.Rule, len(mergedActions)+1),
	}
	for _, a := range mergedActions {
		switch {
		case declared.Rule(a) != nil:
			merged.Rules[a] = declared.Rule(a).Clone()
		case live.Rule(a) != nil:
			merged.Rules[a] = live.Rule(a).Clone()
		default:
			merged.Rules[a] = schema.Rule{"*": false}
		}
	}
	merged.Rules[schema.ActionAddField] = schema.Rule{}

	switch {
	case declared != nil && declared.ProtectedFields != nil:
		merged.ProtectedFields = cloneProtected(declared.ProtectedFields)
	case live != nil && live.ProtectedFields != nil:
		merged.ProtectedFields = cloneProtected(live.ProtectedFields)
	}

	return merged, declared == nil && live == nil
}

func cloneProtected(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}
