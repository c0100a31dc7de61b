// Package policy holds the static tables of built-in classes, their default
// columns, and the fields and indexes the reconciler must never touch.
//
// Everything here is pure: no I/O, no state.
package policy

import (
	"slices"

	"github.com/roach88/schemasync/internal/schema"
)

// column is a compact form of a default column used to build the tables.
type column struct {
	typ    schema.FieldType
	target string
}

func col(t schema.FieldType) column { return column{typ: t} }

func ref(t schema.FieldType, target string) column { return column{typ: t, target: target} }

// baseColumns exist on every class.
var baseColumns = map[string]column{
	"objectId":  col(schema.TypeString),
	"createdAt": col(schema.TypeDate),
	"updatedAt": col(schema.TypeDate),
	"ACL":       col(schema.TypeACL),
}

// classColumns are the default columns of built-in classes, on top of
// baseColumns.
var classColumns = map[string]map[string]column{
	"_User": {
		"username":      col(schema.TypeString),
		"password":      col(schema.TypeString),
		"email":         col(schema.TypeString),
		"emailVerified": col(schema.TypeBoolean),
		"authData":      col(schema.TypeObject),
	},
	"_Installation": {
		"installationId":   col(schema.TypeString),
		"deviceToken":      col(schema.TypeString),
		"channels":         col(schema.TypeArray),
		"deviceType":       col(schema.TypeString),
		"pushType":         col(schema.TypeString),
		"GCMSenderId":      col(schema.TypeString),
		"timeZone":         col(schema.TypeString),
		"localeIdentifier": col(schema.TypeString),
		"badge":            col(schema.TypeNumber),
		"appVersion":       col(schema.TypeString),
		"appName":          col(schema.TypeString),
		"appIdentifier":    col(schema.TypeString),
		"parseVersion":     col(schema.TypeString),
	},
	"_Role": {
		"name":  col(schema.TypeString),
		"users": ref(schema.TypeRelation, "_User"),
		"roles": ref(schema.TypeRelation, "_Role"),
	},
	"_Session": {
		"user":           ref(schema.TypePointer, "_User"),
		"installationId": col(schema.TypeString),
		"sessionToken":   col(schema.TypeString),
		"expiresAt":      col(schema.TypeDate),
		"createdWith":    col(schema.TypeObject),
	},
	"_Product": {
		"productIdentifier": col(schema.TypeString),
		"download":          col(schema.TypeFile),
		"downloadName":      col(schema.TypeString),
		"icon":              col(schema.TypeFile),
		"order":             col(schema.TypeNumber),
		"title":             col(schema.TypeString),
		"subtitle":          col(schema.TypeString),
	},
	"_PushStatus": {
		"pushTime":            col(schema.TypeString),
		"source":              col(schema.TypeString),
		"query":               col(schema.TypeString),
		"payload":             col(schema.TypeString),
		"title":               col(schema.TypeString),
		"expiry":              col(schema.TypeNumber),
		"expiration_interval": col(schema.TypeNumber),
		"status":              col(schema.TypeString),
		"numSent":             col(schema.TypeNumber),
		"numFailed":           col(schema.TypeNumber),
		"pushHash":            col(schema.TypeString),
		"errorMessage":        col(schema.TypeObject),
		"sentPerType":         col(schema.TypeObject),
		"failedPerType":       col(schema.TypeObject),
		"sentPerUTCOffset":    col(schema.TypeObject),
		"failedPerUTCOffset":  col(schema.TypeObject),
		"count":               col(schema.TypeNumber),
	},
	"_JobStatus": {
		"jobName":    col(schema.TypeString),
		"source":     col(schema.TypeString),
		"status":     col(schema.TypeString),
		"message":    col(schema.TypeString),
		"params":     col(schema.TypeObject),
		"finishedAt": col(schema.TypeDate),
	},
	"_JobSchedule": {
		"jobName":       col(schema.TypeString),
		"description":   col(schema.TypeString),
		"params":        col(schema.TypeString),
		"startAfter":    col(schema.TypeString),
		"daysOfWeek":    col(schema.TypeArray),
		"timeOfDay":     col(schema.TypeString),
		"lastRun":       col(schema.TypeNumber),
		"repeatMinutes": col(schema.TypeNumber),
	},
	"_Hooks": {
		"functionName": col(schema.TypeString),
		"className":    col(schema.TypeString),
		"triggerName":  col(schema.TypeString),
		"url":          col(schema.TypeString),
	},
	"_GlobalConfig": {
		"params":        col(schema.TypeObject),
		"masterKeyOnly": col(schema.TypeObject),
	},
	"_GraphQLConfig": {
		"config": col(schema.TypeObject),
	},
	"_Audience": {
		"name":      col(schema.TypeString),
		"query":     col(schema.TypeString),
		"lastUsed":  col(schema.TypeDate),
		"timesUsed": col(schema.TypeNumber),
	},
	"_Idempotency": {
		"reqId":  col(schema.TypeString),
		"expire": col(schema.TypeDate),
	},
}

// systemClasses are the built-in classes reported by schema enumeration.
// _Hooks, _GlobalConfig and _GraphQLConfig have default columns but are
// never listed.
var systemClasses = []string{
	"_User",
	"_Installation",
	"_Role",
	"_Session",
	"_Product",
	"_PushStatus",
	"_JobStatus",
	"_JobSchedule",
	"_Audience",
	"_Idempotency",
}

const anyClass = "*"

// protectedIndexes maps a class (or anyClass) to index names that exist
// for the backend's own bookkeeping.
var protectedIndexes = map[string][]string{
	anyClass:       {"_id_"},
	"_User":        {"username_1", "email_1", "case_insensitive_username", "case_insensitive_email"},
	"_Role":        {"name_1"},
	"_Idempotency": {"reqId_1"},
}

// IsProtectedField reports whether fieldName is a default column of
// className. Protected fields are never added, deleted, recreated, or
// updated by the reconciler.
func IsProtectedField(className, fieldName string) bool {
	if _, ok := baseColumns[fieldName]; ok {
		return true
	}
	_, ok := classColumns[className][fieldName]
	return ok
}

// IsProtectedIndex reports whether indexName is owned by the backend.
func IsProtectedIndex(className, indexName string) bool {
	return slices.Contains(protectedIndexes[anyClass], indexName) ||
		slices.Contains(protectedIndexes[className], indexName)
}

// IsSystemClass reports whether className is a built-in class.
func IsSystemClass(className string) bool {
	return slices.Contains(systemClasses, className)
}

// SystemClasses returns the built-in class names.
func SystemClasses() []string {
	return slices.Clone(systemClasses)
}

// DefaultFields returns the default columns of className as descriptors:
// the base columns for every class plus the class's own defaults.
func DefaultFields(className string) schema.Fields {
	out := make(schema.Fields, len(baseColumns)+len(classColumns[className]))
	for name, c := range baseColumns {
		out[name] = c.field()
	}
	for name, c := range classColumns[className] {
		out[name] = c.field()
	}
	return out
}

// DefaultIndexes returns the backend-owned indexes materialized with a
// system class. Every class gets _id_.
func DefaultIndexes(className string) map[string]schema.Index {
	out := map[string]schema.Index{"_id_": {"_id": 1}}
	switch className {
	case "_User":
		out["username_1"] = schema.Index{"username": 1}
		out["email_1"] = schema.Index{"email": 1}
		out["case_insensitive_username"] = schema.Index{"username": 1}
		out["case_insensitive_email"] = schema.Index{"email": 1}
	case "_Role":
		out["name_1"] = schema.Index{"name": 1}
	case "_Idempotency":
		out["reqId_1"] = schema.Index{"reqId": 1}
	}
	return out
}

func (c column) field() schema.Field {
	switch c.typ {
	case schema.TypeRelation:
		return schema.RelationField{TargetClass: c.target}
	case schema.TypePointer:
		return schema.PointerField{TargetClass: c.target}
	default:
		return schema.ScalarField{Kind: c.typ}
	}
}
