package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/requestid"
)

func serve(t *testing.T, header string) (echoed, seen string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Header().Get(requestid.Header), seen
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("reuses valid header", func(t *testing.T) {
		t.Parallel()
		echoed, seen := serve(t, "popup-refresh_42")
		assert.Equal(t, "popup-refresh_42", echoed)
		assert.Equal(t, echoed, seen)
	})

	for name, header := range map[string]string{
		"missing":     "",
		"injection":   "abc\nlevel=ERROR",
		"spaces":      "two words",
		"too long":    strings.Repeat("a", 129),
		"punctuation": "id;drop",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			echoed, seen := serve(t, header)
			assert.NotEqual(t, header, echoed)
			assert.Equal(t, echoed, seen)
			_, err := uuid.Parse(echoed)
			assert.NoError(t, err)
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()
	assert.True(t, requestid.Valid(uuid.NewString()))
	assert.True(t, requestid.Valid(strings.Repeat("z", 128)))
	assert.False(t, requestid.Valid(""))
	assert.False(t, requestid.Valid("über"))
}

func TestFromContext(t *testing.T) {
	t.Parallel()
	assert.Empty(t, requestid.FromContext(context.Background()))
	//nolint:staticcheck // nil context is tolerated
	assert.Empty(t, requestid.FromContext(nil))
	assert.Equal(t, "msg-1", requestid.FromContext(requestid.WithContext(context.Background(), "msg-1")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()
	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "msg-1"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "msg-1", attr.Value.String())
}
