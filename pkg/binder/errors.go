package binder

import "errors"

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON request body")
	ErrBodyTooLarge         = errors.New("request body too large")

	// ErrBinderNotApplicable tells the caller to skip a binder that does not
	// apply to the request, e.g. JSON on a request without a body.
	ErrBinderNotApplicable = errors.New("binder not applicable")
)
