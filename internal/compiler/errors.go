package compiler

import "fmt"

// Load error codes (E001-E009).
const (
	ErrCodeNotFound    = "E001" // path does not exist
	ErrCodeNoFiles     = "E002" // directory holds no schema files
	ErrCodeParse       = "E003" // CUE, YAML or JSON syntax error
	ErrCodeLayout      = "E004" // missing or malformed top-level key
	ErrCodeUnsupported = "E005" // unknown file extension
	ErrCodeNotConcrete = "E006" // CUE value is not fully concrete
)

// Validation error codes (E100-E199).
const (
	ErrInvalidDocument    = "E100" // declaration is not a mapping or has unknown keys
	ErrInvalidClassName   = "E101" // className missing, malformed or mismatched
	ErrDuplicateClass     = "E102" // className declared twice
	ErrInvalidFieldType   = "E103" // type missing, unknown or not declarable
	ErrInvalidTargetClass = "E104" // targetClass missing, unexpected or malformed
	ErrInvalidFieldOption = "E105" // required/defaultValue malformed
	ErrInvalidIndex       = "E106" // empty index or direction other than 1/-1
	ErrUnknownIndexField  = "E107" // index key names no field of the class
	ErrInvalidPermissions = "E108" // unknown action or malformed rule
	ErrInvalidFieldName   = "E109" // field name is not an identifier
)

// LoadError reports a problem reading schema files.
type LoadError struct {
	Code    string
	Path    string
	Line    int
	Message string
}

func (e *LoadError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Code, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationError represents a problem with one declaration.
type ValidationError struct {
	Source  string `json:"source,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Source, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}
