package observability

import (
	"errors"
	"fmt"
)

// AggregateErrors joins the failures of a multi-step operation, logs a single
// warning summarising them, and returns the joined error. It returns nil when
// every step succeeded.
func AggregateErrors(operation string, attempted int, errs []error, fields ...Field) error {
	failed := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	logFields := append(fields[:len(fields):len(fields)],
		Field{Key: "operation", Value: operation},
		Field{Key: "attempted", Value: attempted},
		Field{Key: "failed", Value: len(failed)},
	)
	Log().Warn("partial failure", logFields...)
	return fmt.Errorf("%s: %d of %d failed: %w", operation, len(failed), attempted, errors.Join(failed...))
}
