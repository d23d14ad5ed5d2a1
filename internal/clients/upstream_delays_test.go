package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDelays_emptyRIDsShortCircuits(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewUpstreamDelaysClient(server.URL, time.Second)
	records, err := client.FetchDelays(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.False(t, called)
}

func TestFetchDelays_success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/delays", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"services":[{"rid":"R1","delay_minutes":20,"is_cancelled":false}]}`))
	}))
	defer server.Close()

	client := NewUpstreamDelaysClient(server.URL+"/", time.Second)
	records, err := client.FetchDelays(context.Background(), []string{"R1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "R1", records[0].RID)
	assert.Equal(t, 20, records[0].DelayMinutes)
}

func TestFetchDelays_nonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewUpstreamDelaysClient(server.URL, time.Second)
	_, err := client.FetchDelays(context.Background(), []string{"R1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Upstream API error")
}

func TestFetchDelays_timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewUpstreamDelaysClient(server.URL, 5*time.Millisecond)
	_, err := client.FetchDelays(context.Background(), []string{"R1"})
	require.Error(t, err)
	assert.Equal(t, "Upstream API request timeout", err.Error())
}
