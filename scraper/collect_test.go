package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingServer serves canned pages per path suffix and records every
// requested path.
type recordingServer struct {
	*httptest.Server

	mu    sync.Mutex
	paths []string
}

func newRecordingServer(pages map[string]string) *recordingServer {
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.paths = append(rs.paths, r.URL.Path)
		rs.mu.Unlock()

		for suffix, page := range pages {
			if strings.HasSuffix(r.URL.Path, suffix) {
				w.Write([]byte(page))
				return
			}
		}
		w.Write([]byte("<html></html>"))
	}))
	return rs
}

func (rs *recordingServer) requested(fragment string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, path := range rs.paths {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

func TestGetDataFeatureGating(t *testing.T) {
	server := newRecordingServer(nil)
	defer server.Close()

	s := newTestScraper(t, server.URL)
	data := s.GetData(context.Background(), Options{}, "WR3000S V1.0")

	assert.NotContains(t, data, ModuleModem)
	assert.NotContains(t, data, ModuleDataUsage)
	assert.NotContains(t, data, ModuleSMS)
	assert.Contains(t, data, ModuleSystem)
	assert.Contains(t, data, ModuleDevices)
	assert.Contains(t, data, ModuleLAN)

	// Gated modules never touch the router.
	assert.False(t, server.requested("gcom"))
}

func TestGetDataDefaultModelPollsEverything(t *testing.T) {
	server := newRecordingServer(nil)
	defer server.Close()

	s := newTestScraper(t, server.URL)
	data := s.GetData(context.Background(), Options{}, "default")

	assert.Contains(t, data, ModuleModem)
	assert.Contains(t, data, ModuleDataUsage)
	assert.Contains(t, data, ModuleSMS)
	assert.Contains(t, data, ModuleMesh)
	assert.True(t, server.requested("gcom"))
}

func TestGetDataWANProbe(t *testing.T) {
	wanPage := `<table>
		<tr><th>Protocol</th><td>DHCP</td></tr>
		<tr><th>Gateway</th><td>100.64.1.1</td></tr>
	</table>`

	server := newRecordingServer(map[string]string{})
	defer server.Close()

	// Generic empty pages everywhere: the probe finds no markers and the
	// module stays out of the snapshot.
	s := newTestScraper(t, server.URL)
	data := s.GetData(context.Background(), Options{}, "default")
	assert.NotContains(t, data, ModuleWAN)

	server2 := newRecordingServer(map[string]string{"wan/status": wanPage})
	defer server2.Close()

	s2 := newTestScraper(t, server2.URL)
	data = s2.GetData(context.Background(), Options{}, "default")
	require.Contains(t, data, ModuleWAN)
	assert.Equal(t, "DHCP", data[ModuleWAN]["protocol"].Value)
	assert.Equal(t, "100.64.1.1", data[ModuleWAN]["gateway"].Value)
}

func TestGetDataHonorsDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	s := newTestScraper(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	data := s.GetData(ctx, Options{}, "default")

	// Once the deadline passes every remaining fetch fails fast; the
	// cycle does not serialize full per-request budgets.
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Contains(t, data, ModuleSystem)
}

func TestGetModel(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		expected string
	}{
		{
			name:     "banner class",
			page:     `<div class="login-banner">P5 V1.0</div>`,
			expected: "P5 V1.0",
		},
		{
			name:     "cudy prefix",
			page:     `<html><head><title>Cudy M3000</title></head></html>`,
			expected: "M3000",
		},
		{
			name:     "nothing recognizable",
			page:     `<html><body>hello</body></html>`,
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.page))
			}))
			defer server.Close()

			s := newTestScraper(t, server.URL)
			assert.Equal(t, tt.expected, s.GetModel(context.Background()))
		})
	}
}
