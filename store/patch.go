package store

import (
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-mediator/errs"
)

// ApplyPatch copies the model and assigns every patched field on the copy.
// Identifier fields can not be patched.
func ApplyPatch[T any](model T, patch Patch) (T, error) {
	out := Clone(model)

	fields := make([]string, 0, len(patch))
	for name := range patch {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var violations []goerrors.FieldError
	for _, name := range fields {
		if normalizeName(name) == "id" {
			violations = append(violations, goerrors.FieldError{Field: name, Message: "identifier can not be patched"})
			continue
		}
		if err := SetField(out, name, patch[name]); err != nil {
			violations = append(violations, goerrors.FieldError{Field: name, Message: err.Error(), Value: patch[name]})
		}
	}

	if len(violations) > 0 {
		var zero T
		return zero, errs.ValidationFailed("invalid patch", violations...)
	}
	return out, nil
}
