package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/leoric/kbai/pkg/domain/types"
	httpinfra "github.com/leoric/kbai/pkg/infra/http"
	"github.com/m-mizutani/gt"
)

func TestClient_Probe(t *testing.T) {
	content := []byte("fake zip content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodHead)
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Write(content)
	}))
	defer server.Close()

	client := httpinfra.NewClient()
	size, err := client.Probe(context.Background(), server.URL+"/data.zip")
	gt.NoError(t, err)
	gt.Value(t, size).Equal(int64(len(content)))
}

func TestClient_Probe_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	client := httpinfra.NewClient()
	_, err := client.Probe(context.Background(), server.URL)
	gt.Error(t, err)
	gt.True(t, types.IsNetworkError(err))
}

func TestClient_Probe_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := httpinfra.NewClient(httpinfra.WithProbeTimeout(50 * time.Millisecond))
	_, err := client.Probe(context.Background(), server.URL)
	gt.Error(t, err)
	gt.True(t, types.IsNetworkError(err))
}

func TestClient_Open(t *testing.T) {
	content := []byte("0123456789abcdef")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodGet)
		gt.Value(t, r.Header.Get("X-Dataset")).Equal("wiki")
		gt.Value(t, r.Header.Get("Authorization")).Equal("Bearer hf_token")
		gt.String(t, r.Header.Get("User-Agent")).Contains("kbai/")
		w.Write(content)
	}))
	defer server.Close()

	client := httpinfra.NewClient(
		httpinfra.WithHeader("X-Dataset", "wiki"),
		httpinfra.WithBearerToken("hf_token"),
	)
	body, size, err := client.Open(context.Background(), server.URL)
	gt.NoError(t, err)
	defer body.Close()

	gt.Value(t, size).Equal(int64(len(content)))
	data, err := io.ReadAll(body)
	gt.NoError(t, err)
	gt.Value(t, data).Equal(content)
}

func TestClient_Open_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := httpinfra.NewClient()
	body, _, err := client.Open(context.Background(), server.URL)
	gt.Error(t, err)
	gt.Value(t, body).Nil()
	gt.True(t, types.IsNetworkError(err))
}

func TestClient_Open_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := httpinfra.NewClient(httpinfra.WithConnectTimeout(time.Second))
	_, _, err := client.Open(context.Background(), url)
	gt.Error(t, err)
	gt.True(t, types.IsNetworkError(err))
}
