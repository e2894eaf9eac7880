package domain

import (
	"errors"
	"fmt"
)

var (
	ErrImportNotFound     = errors.New("import not found")
	ErrImportItemNotFound = errors.New("import item not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrDuplicateEvent     = errors.New("duplicate event")
)

// BusinessRuleError carries a human-readable remediation message for
// 422-class failures: unsupported formats, unrecognized layouts, state
// guard violations, incomplete confirmations.
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(format string, args ...interface{}) *BusinessRuleError {
	return &BusinessRuleError{Message: fmt.Sprintf(format, args...)}
}

// IsBusinessRule reports whether err is a business rule violation.
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// ErrImportNotEditable guards every mutation of a session that already left
// PENDING_REVIEW. Terminal states never transition back.
var ErrImportNotEditable = &BusinessRuleError{
	Message: "this import can no longer be changed: it was already confirmed or cancelled",
}
