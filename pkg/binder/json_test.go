package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/binder"
)

type payload struct {
	Mode   *string           `json:"mode"`
	Limit  *int              `json:"limit"`
	Labels map[string]string `json:"labels"`
}

func request(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	if body == "" {
		r = httptest.NewRequest(http.MethodPut, "/", http.NoBody)
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()

	var p payload
	err := binder.JSON()(request(`{"mode":"  queue\u0000 ","limit":10,"labels":{"a":" b "}}`, "application/json; charset=utf-8"), &p)
	require.NoError(t, err)
	require.NotNil(t, p.Mode)
	assert.Equal(t, "queue", *p.Mode)
	require.NotNil(t, p.Limit)
	assert.Equal(t, 10, *p.Limit)
	assert.Equal(t, "b", p.Labels["a"])
}

func TestJSON_AbsentFieldsStayNil(t *testing.T) {
	t.Parallel()

	var p payload
	require.NoError(t, binder.JSON()(request(`{"limit":3}`, "application/json"), &p))
	assert.Nil(t, p.Mode)
	assert.Equal(t, 3, *p.Limit)
}

func TestJSON_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		contentType string
		opts        []binder.JSONOption
		want        error
	}{
		{"missing content type", `{}`, "", nil, binder.ErrMissingContentType},
		{"wrong content type", `{}`, "text/plain", nil, binder.ErrUnsupportedMediaType},
		{"empty body", "", "application/json", nil, binder.ErrFailedToParseJSON},
		{"malformed", `{"limit":`, "application/json", nil, binder.ErrFailedToParseJSON},
		{"wrong type", `{"limit":"ten"}`, "application/json", nil, binder.ErrFailedToParseJSON},
		{"unknown field", `{"colour":"red"}`, "application/json", nil, binder.ErrFailedToParseJSON},
		{"trailing data", `{"limit":1}{"limit":2}`, "application/json", nil, binder.ErrFailedToParseJSON},
		{"too large", `{"mode":"` + strings.Repeat("x", 64) + `"}`, "application/json", []binder.JSONOption{binder.WithMaxSize(32)}, binder.ErrBodyTooLarge},
		{"optional without body", "", "", []binder.JSONOption{binder.Optional()}, binder.ErrBinderNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p payload
			err := binder.JSON(tt.opts...)(request(tt.body, tt.contentType), &p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
