package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/require"
)

func TestBrowserTransportOneRequestPerGet(t *testing.T) {
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no local chrome")
	}

	var (
		mu     sync.Mutex
		hits   = map[string]int{}
		agents []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		if r.URL.Path != "/" {
			agents = append(agents, r.UserAgent())
		}
		mu.Unlock()
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte("<html></html>"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessions": []}`))
	}))
	defer srv.Close()

	bt, err := NewBrowserTransport(srv.URL, "cowin-test-agent/1.0")
	require.NoError(t, err)
	defer bt.Close()

	for i := 0; i < 3; i++ {
		code, body, err := bt.Get(context.Background(), srv.URL+"/api/sessions")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"sessions": []}`, string(body))
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, hits["/api/sessions"])
	require.LessOrEqual(t, hits["/"], 1)
	for _, ua := range agents {
		require.Equal(t, "cowin-test-agent/1.0", ua)
	}
}
