package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RelayResult("ok")
		m.SessionStarted()
		m.SessionEnded("timeout")
		m.MentionDenied("bot")
		m.CommandRun("say")
	})
}

func TestSessionGauge(t *testing.T) {
	m := New("test")
	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded("stopped")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsEnded.WithLabelValues("stopped")))
}

func TestRouter(t *testing.T) {
	m := New("test")
	m.RelayResult("ok")

	r := NewRouter(m, func() gin.H { return gin.H{"sessions": 3} })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":3}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_relay_messages_total{result="ok"} 1`))
}
