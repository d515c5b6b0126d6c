// Package validator builds field-level validation errors from small rules.
//
// A Rule pairs a Check func with the error reported when it fails. Apply
// evaluates rules in order and aggregates failures into ValidationErrors,
// which implements error, so several problems can be returned at once:
//
//	err := validator.Apply(
//		validator.Required("url", raw),
//		validator.URLWithScheme("url", raw, []string{"http", "https"}),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		// verrs.Fields(), verrs.Get("url")
//	}
//
// Rules are plain values without shared state and are safe for concurrent use.
package validator
