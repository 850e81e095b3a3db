package catalog

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound reports an operation against an id that is absent from the
// current snapshot. The caller should refresh or ignore.
var ErrNotFound = errors.New("catalog: record not found")

// ValidationError blocks a submit whose draft has empty required fields.
// No remote call is made when it is returned.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: required fields empty: %s", strings.Join(e.Missing, ", "))
}

// RemoteError wraps a store mutation rejected by the backend. It is
// delivered on the async result channel of Submit and DeleteRecord so the
// caller can inform the user and retry.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("catalog: remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
