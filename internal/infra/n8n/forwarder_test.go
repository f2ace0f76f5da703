package n8n

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwarder_ForwardAIMessage(t *testing.T) {
	var got aiMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewForwarder(srv.URL, time.Second).ForwardAIMessage(context.Background(), "60123456789", "Terima kasih")
	require.NoError(t, err)
	assert.Equal(t, "60123456789", got.PhoneNumber)
	assert.Equal(t, "Terima kasih", got.AIMessages)
}

func TestForwarder_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewForwarder(srv.URL, time.Second).ForwardAIMessage(context.Background(), "6012", "x")
	assert.Error(t, err)
}

func TestForwarder_EmptyURL_Noop(t *testing.T) {
	assert.NoError(t, NewForwarder("", time.Second).ForwardAIMessage(context.Background(), "6012", "x"))
}
