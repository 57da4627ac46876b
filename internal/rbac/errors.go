package rbac

import (
	"errors"
	"fmt"

	"github.com/orgdesk/orgdesk/internal/model"
)

// ErrForbidden is returned by every guard and scope assertion on denial.
// It is deliberately undifferentiated: callers must not learn which check
// failed.
var ErrForbidden = errors.New("forbidden")

// InvalidEntry identifies one permission triple in an import document that
// does not exist in the live catalog.
type InvalidEntry struct {
	Role     string      `json:"role"`
	Resource string      `json:"resource"`
	Action   string      `json:"action"`
	Scope    model.Scope `json:"scope"`
}

// ValidationError reports every invalid permission reference in an import
// document at once, so operators can fix a bulk document in one pass.
type ValidationError struct {
	Entries []InvalidEntry
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("import references %d unknown permission(s)", len(e.Entries))
}
