package templates

import (
	"errors"
	"fmt"
	"time"

	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

// Template is an immutable prompt template for one category. Stores hand out
// copies; a template is only ever replaced wholesale.
type Template struct {
	Category  triage.Category `json:"category"`
	Body      string          `json:"body"`
	Revision  int             `json:"revision"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ErrNoSnapshot is returned by a Backend that has nothing persisted yet.
var ErrNoSnapshot = errors.New("templates: no persisted snapshot")

// ErrPartialSnapshot is returned together with the entries found by a
// Backend whose seed never completed. Open fills the missing defaults and
// saves the whole snapshot again.
var ErrPartialSnapshot = errors.New("templates: incomplete persisted snapshot")

// IOError reports a failed persistence attempt. The in-memory store is left
// exactly as it was before the write.
type IOError struct {
	Op       string
	Category triage.Category
	Err      error
}

func (e *IOError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("templates: %s %s: %v", e.Op, e.Category, e.Err)
	}
	return fmt.Sprintf("templates: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
