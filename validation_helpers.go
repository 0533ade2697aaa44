package accounts

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field -> message map for rendering.
func FormatValidationErrorToMap(err error) map[string]string {
	result := map[string]string{}
	if err == nil {
		return result
	}

	verrs, ok := err.(validation.Errors)
	if !ok {
		result["error"] = err.Error()
		return result
	}

	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		result[field] = ferr.Error()
	}

	return result
}
