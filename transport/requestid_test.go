package transport

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen []string
	next := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, req.Header.Get("X-Request-Id"))
		return &http.Response{StatusCode: http.StatusOK}, nil
	})
	rt := Chain(next, RequestID())

	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("X-Request-Id"), "caller's request is not modified")

	req.Header.Set("X-Request-Id", "caller-chosen")
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	_, err = uuid.Parse(seen[0])
	assert.NoError(t, err)
	assert.Equal(t, "caller-chosen", seen[1])
}
