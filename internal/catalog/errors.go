package catalog

import (
	"errors"
	"fmt"
)

// RuleErrorCode categorizes rejected mutations.
type RuleErrorCode string

const (
	// ErrCodeClassExists indicates a create for a class already stored.
	ErrCodeClassExists RuleErrorCode = "CLASS_EXISTS"

	// ErrCodeClassNotFound indicates an update for an unknown class.
	ErrCodeClassNotFound RuleErrorCode = "CLASS_NOT_FOUND"

	// ErrCodeTypeChange indicates an upsert that would change a field's type.
	ErrCodeTypeChange RuleErrorCode = "TYPE_CHANGE"

	// ErrCodeFieldNotFound indicates deletion of a missing field.
	ErrCodeFieldNotFound RuleErrorCode = "FIELD_NOT_FOUND"

	// ErrCodeInvalidField indicates a malformed field change.
	ErrCodeInvalidField RuleErrorCode = "INVALID_FIELD"

	// ErrCodeIndexExists indicates an index added twice.
	ErrCodeIndexExists RuleErrorCode = "INDEX_EXISTS"

	// ErrCodeIndexNotFound indicates deletion of a missing index.
	ErrCodeIndexNotFound RuleErrorCode = "INDEX_NOT_FOUND"

	// ErrCodeInvalidIndex indicates an index over unknown fields.
	ErrCodeInvalidIndex RuleErrorCode = "INVALID_INDEX"

	// ErrCodeProtected indicates a payload touching a default column or a
	// backend-owned index.
	ErrCodeProtected RuleErrorCode = "PROTECTED"
)

// RuleError is returned when a payload violates a mutation rule.
type RuleError struct {
	Code      RuleErrorCode
	ClassName string
	// Name is the field or index involved, if any.
	Name    string
	Message string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (class=%s, name=%s)", e.Code, e.Message, e.ClassName, e.Name)
	}
	return fmt.Sprintf("%s: %s (class=%s)", e.Code, e.Message, e.ClassName)
}

// IsRuleError reports whether err carries code.
func IsRuleError(err error, code RuleErrorCode) bool {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func ruleErr(code RuleErrorCode, className, name, format string, args ...any) *RuleError {
	return &RuleError{
		Code:      code,
		ClassName: className,
		Name:      name,
		Message:   fmt.Sprintf(format, args...),
	}
}
