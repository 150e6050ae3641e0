package utils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeClientAppliesHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer server.Close()

	client := NewRangeClient(HTTPClientConfig{
		Timeout:   time.Second,
		UserAgent: "agent/1",
		Headers: map[string]string{
			"authorization": "Bearer t",
			"range":         "bytes=999-",
		},
	})
	resp, err := client.Get(context.Background(), server.URL, "bytes=0-9")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "agent/1", got.Get("User-Agent"))
	assert.Equal(t, "Bearer t", got.Get("Authorization"))
	assert.Equal(t, "bytes=0-9", got.Get("Range"), "request range wins over configured headers")
}

func TestRangeClientDefaultUserAgent(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
	}))
	defer server.Close()

	client := NewRangeClient(HTTPClientConfig{})
	resp, err := client.Head(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, ToolUserAgent, ua)
}

func TestRangeClientReadTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := NewRangeClient(HTTPClientConfig{Timeout: 100 * time.Millisecond})
	resp, err := client.Get(context.Background(), server.URL, "")
	require.NoError(t, err)
	defer resp.Body.Close()

	start := time.Now()
	_, err = io.ReadAll(resp.Body)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReadTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRangeClientSlowConsumerIsNotTimedOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	client := NewRangeClient(HTTPClientConfig{Timeout: 50 * time.Millisecond})
	resp, err := client.Get(context.Background(), server.URL, "")
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := make([]byte, 5)
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	// time spent between reads does not count against the read timeout
	time.Sleep(150 * time.Millisecond)
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	assert.Equal(t, "56789", string(buf))
}
