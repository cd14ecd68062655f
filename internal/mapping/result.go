package mapping

import "slices"

// Result is the tagged outcome of a transform: either a success carrying a
// value and zero or more advisory warnings, or a failure carrying errors
// and no value.
type Result[T any] struct {
	ok       bool
	value    T
	warnings []string
	errs     []error
}

// Success returns a successful Result holding value.
func Success[T any](value T, warnings ...string) Result[T] {
	return Result[T]{ok: true, value: value, warnings: slices.Clone(warnings)}
}

// Failure returns a failed Result. A failure should carry at least one error.
func Failure[T any](errs ...error) Result[T] {
	return Result[T]{errs: slices.Clone(errs)}
}

// OK reports whether the result is a success.
func (r Result[T]) OK() bool {
	return r.ok
}

// Value returns the success value. The second return is false for failures,
// in which case the zero value is returned.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Warnings returns a copy of the warnings of a success. Failures have none.
func (r Result[T]) Warnings() []string {
	return slices.Clone(r.warnings)
}

// Errors returns a copy of the errors of a failure. Successes have none.
func (r Result[T]) Errors() []error {
	return slices.Clone(r.errs)
}

// ErrorStrings returns the failure's errors as messages.
func (r Result[T]) ErrorStrings() []string {
	out := make([]string, len(r.errs))
	for i, err := range r.errs {
		out[i] = err.Error()
	}
	return out
}
