package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_Deliver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req publishRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "arn:endpoint/1", req.Endpoint)
		assert.Equal(t, `{"GCM":"{}"}`, req.Message)
		assert.Equal(t, "json", req.MessageStructure)

		_, _ = w.Write([]byte(`{"messageId": "m-1"}`))
	}))
	defer srv.Close()

	g := NewGateway(srv.Client(), srv.URL, "s3cret")
	id, err := g.Deliver(context.Background(), "arn:endpoint/1", `{"GCM":"{}"}`)
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)
}

func TestGateway_NoTokenNoAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"messageId": "m-2"}`))
	}))
	defer srv.Close()

	_, err := NewGateway(srv.Client(), srv.URL, "").Deliver(context.Background(), "e", "{}")
	require.NoError(t, err)
}

func TestGateway_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"endpoint disabled", http.StatusBadRequest, "EndpointDisabled", "status 400: EndpointDisabled"},
		{"server error", http.StatusInternalServerError, "", "status 500"},
		{"empty message id", http.StatusOK, `{}`, "empty message id"},
		{"garbage body", http.StatusOK, `<html>`, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGateway(srv.Client(), srv.URL, "").Deliver(context.Background(), "e", "{}")
			assert.ErrorIs(t, err, ErrDelivery)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGateway_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewGateway(srv.Client(), srv.URL, "")
	for i := 0; i < 5; i++ {
		_, err := g.Deliver(context.Background(), "e", "{}")
		assert.ErrorIs(t, err, ErrDelivery)
	}

	_, err := g.Deliver(context.Background(), "e", "{}")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.EqualValues(t, 5, calls.Load())
}

func TestLogTransport_Deliver(t *testing.T) {
	tr := NewLogTransport(nil)

	a, err := tr.Deliver(context.Background(), "e", "{}")
	require.NoError(t, err)
	b, err := tr.Deliver(context.Background(), "e", "{}")
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestGateway_RejectedEndpointsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req publishRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Endpoint != "healthy" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("EndpointDisabled"))
			return
		}
		_, _ = w.Write([]byte(`{"messageId": "m-ok"}`))
	}))
	defer srv.Close()

	g := NewGateway(srv.Client(), srv.URL, "")
	for i := 0; i < 10; i++ {
		_, err := g.Deliver(context.Background(), "disabled", "{}")
		assert.ErrorIs(t, err, ErrEndpointRejected)
		assert.ErrorIs(t, err, ErrDelivery)
		assert.NotErrorIs(t, err, ErrGatewayUnavailable)
	}

	id, err := g.Deliver(context.Background(), "healthy", "{}")
	require.NoError(t, err)
	assert.Equal(t, "m-ok", id)
}

func TestGateway_RateLimitCountsAsGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGateway(srv.Client(), srv.URL, "")
	for i := 0; i < 5; i++ {
		_, err := g.Deliver(context.Background(), "e", "{}")
		assert.NotErrorIs(t, err, ErrEndpointRejected)
	}
	_, err := g.Deliver(context.Background(), "e", "{}")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
