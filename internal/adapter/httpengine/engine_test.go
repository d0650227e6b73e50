package httpengine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitFinished(t *testing.T, e *Engine) {
	t.Helper()
	require.Eventually(t, e.IsFinished, 5*time.Second, 10*time.Millisecond)
}

func TestFactory_RejectsBadURLs(t *testing.T) {
	f := NewFactory(nil, zap.NewNop())

	for _, raw := range []string{"ftp://x/a", "not a url", "http://", "://broken"} {
		_, err := f.NewEngine(raw, filepath.Join(t.TempDir(), "a.bin"))
		require.Error(t, err, raw)
	}
}

func TestEngine_Success(t *testing.T) {
	body := strings.Repeat("mirror", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "a.bin", time.Time{}, strings.NewReader(body))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "nested", "a.bin")
	f := NewFactory(&Config{Timeout: 5 * time.Second}, zap.NewNop())
	te, err := f.NewEngine(srv.URL+"/a.bin", dest)
	require.NoError(t, err)
	e := te.(*Engine)

	require.NoError(t, e.Start(context.Background(), true))
	waitFinished(t, e)
	require.NoError(t, e.Err())

	size, ok := e.FileSize()
	require.True(t, ok)
	require.Equal(t, uint64(len(body)), size)
	require.Equal(t, uint64(len(body)), e.DownloadedSize())
	require.Equal(t, 1.0, e.ProgressFraction())
	require.Equal(t, "0s", e.HumanETA())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, body, string(data))
}

func TestEngine_BlockingStart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	te, err := NewFactory(nil, zap.NewNop()).NewEngine(srv.URL, filepath.Join(t.TempDir(), "ok.txt"))
	require.NoError(t, err)
	require.NoError(t, te.Start(context.Background(), false))
	require.True(t, te.IsFinished())
	require.Error(t, te.Start(context.Background(), false), "second start")
}

func TestEngine_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	te, err := NewFactory(nil, zap.NewNop()).NewEngine(srv.URL+"/missing", filepath.Join(t.TempDir(), "m.bin"))
	require.NoError(t, err)
	e := te.(*Engine)

	require.NoError(t, e.Start(context.Background(), true))
	waitFinished(t, e)
	require.Error(t, e.Err())
	require.Contains(t, e.Err().Error(), "404")
	require.Equal(t, 0.0, e.ProgressFraction())
}

func TestEngine_StopDuringTransfer(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	te, err := NewFactory(nil, zap.NewNop()).NewEngine(srv.URL+"/slow.bin", filepath.Join(t.TempDir(), "slow.bin"))
	require.NoError(t, err)
	e := te.(*Engine)

	require.NoError(t, e.Start(context.Background(), true))
	require.Eventually(t, func() bool { return e.DownloadedSize() > 0 }, 5*time.Second, 10*time.Millisecond)

	size, ok := e.FileSize()
	require.True(t, ok)
	require.Equal(t, uint64(1048576), size)
	require.NotEqual(t, "unknown", e.HumanETA())

	e.Stop()
	e.Wait()
	require.True(t, e.IsFinished())
	require.Error(t, e.Err())
}
