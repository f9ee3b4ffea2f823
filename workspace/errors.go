package workspace

import (
	"errors"
	"fmt"
)

// ErrProduceFailed marks a failed production action. The client's error is
// wrapped unchanged; no history entry is written for the attempt.
var ErrProduceFailed = errors.New("workspace: produce failed")

// ProduceError carries the identity whose production action failed.
type ProduceError struct {
	Identity string
	Err      error
}

func (e *ProduceError) Error() string {
	return fmt.Sprintf("workspace: produce failed for %q: %v", e.Identity, e.Err)
}

func (e *ProduceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrProduceFailed) match a *ProduceError.
func (e *ProduceError) Is(target error) bool { return target == ErrProduceFailed }
