package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReRegistersOnce(t *testing.T) {
	var registers, checks atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/stations/register", func(w http.ResponseWriter, r *http.Request) {
		registers.Add(1)
		var req RegisterRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gate-a", req.StationID)
		_ = json.NewEncoder(w).Encode(Tokens{AccessToken: "tok-1"})
	})
	mux.HandleFunc("/v1/attendance/check", func(w http.ResponseWriter, r *http.Request) {
		checks.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "day1", r.URL.Query().Get("category"))
		_ = json.NewEncoder(w).Encode(StatusResult{Found: true, User: &User{Name: "Ada"}, Status: StatusNotMarked})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "gate-a", time.Second)
	res, err := c.CheckStatus(context.Background(), "A1", "day1")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, int32(1), registers.Load())
	assert.Equal(t, int32(2), checks.Load())

	_, err = c.CheckStatus(context.Background(), "A1", "day1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), registers.Load(), "token is reused")
}

func TestClientErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/stations/register", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Tokens{AccessToken: "tok"})
	})
	mux.HandleFunc("/v1/attendance/day1/mark", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/v1/attendance/day2/mark", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "gate-a", time.Second)
	_, err := c.MarkAttendance(context.Background(), "A1", "day1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	_, err = c.MarkAttendance(context.Background(), "A1", "day2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, c.Health(context.Background()))
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "gate-a", 50*time.Millisecond)
	_, err := c.CheckStatus(context.Background(), "A1", "day1")
	assert.Error(t, err)
}
