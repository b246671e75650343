package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meal-calendar/internal/shared"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	c := New()

	c.ObserveRequest("GET /api/menus", 200, 5*time.Millisecond)
	c.ObserveRequest("GET /api/menus", 200, 7*time.Millisecond)
	c.ObserveRequest("POST /api/menus", 400, time.Millisecond)

	c.RecordMutation("create", nil)
	c.RecordMutation("create", shared.Conflict("dup"))
	c.RecordMutation("delete", errors.New("disk on fire"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("GET /api/menus", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("create", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("delete", "internal")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `mealcal_http_requests_total{code="400",route="POST /api/menus"} 1`), body)
	assert.Contains(t, body, "mealcal_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 2048), 0644))

	h := GetSysHealth(dir, filepath.Join(dir, "missing"))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "2.0 KB", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "3.0 MB", FormatBytes(3<<20))
}
