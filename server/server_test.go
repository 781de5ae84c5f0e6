package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New("nl-1", "https://nl1.example.com", "https://nl1.example.com/sub/", 100)
	require.NoError(t, err)
	assert.Equal(t, "nl-1", s.Name)
	assert.False(t, s.Full())

	_, err = New("bad", "not a host", "", 100)
	assert.ErrorIs(t, err, ErrInvalidHost)
}

func TestValidHost(t *testing.T) {
	assert.True(t, ValidHost("https://nl1.example.com"))
	assert.True(t, ValidHost("http://10.0.0.1:2053"))
	assert.True(t, ValidHost("10.0.0.1"))
	assert.False(t, ValidHost("nl1.example.com"))
	assert.False(t, ValidHost(""))
}

func TestFull(t *testing.T) {
	s, _ := New("nl-1", "https://nl1.example.com", "", 2)

	s.CurrentClients = 1
	assert.False(t, s.Full())

	s.CurrentClients = 2
	assert.True(t, s.Full())
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	latency, err := Ping(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	assert.Greater(t, latency, time.Duration(0))
}

func TestPingFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Ping(context.Background(), srv.URL, time.Second)
	assert.ErrorIs(t, err, ErrPingFailed)
}
