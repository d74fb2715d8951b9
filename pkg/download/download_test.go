package download_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmacarthur/sheldon/pkg/download"
	"github.com/rossmacarthur/sheldon/pkg/errors"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plugin.zsh", r.URL.Path)
		_, _ = w.Write([]byte("echo hello\n"))
	}))
	defer server.Close()

	var sb strings.Builder
	client := &download.Client{}
	require.NoError(t, client.Download(context.Background(), server.URL+"/plugin.zsh", &sb))
	assert.Equal(t, "echo hello\n", sb.String())
}

func TestDownload_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	var sb strings.Builder
	client := &download.Client{}
	err := client.Download(context.Background(), server.URL+"/missing.zsh", &sb)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDownload))
	assert.Contains(t, err.Error(), "404")
}

func TestDownload_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sb strings.Builder
	client := &download.Client{}
	assert.Error(t, client.Download(ctx, server.URL, &sb))
}
