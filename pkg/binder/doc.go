// Package binder fills request structs from HTTP requests.
//
// JSON decodes a JSON body strictly: unknown fields, trailing data and
// bodies over the size limit are rejected. String fields are trimmed and
// stripped of NUL bytes after decoding.
//
//	type settingsRequest struct {
//		QueueLimit *int `json:"queueLimit"`
//	}
//
//	var req settingsRequest
//	if err := binder.JSON()(r, &req); err != nil {
//		// errors.Is(err, binder.ErrFailedToParseJSON) and friends
//	}
package binder
