package telemetry

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	s, err := newService()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s.SampleAcquired()
	}
	s.AcquisitionFault()
	s.QueueOverflow()
	s.QueueOverflow()
	s.PeakDetected()
	s.HeartRateRejected()
	s.AverageHR(74)

	assert.Equal(t, 3.0, testutil.ToFloat64(s.samples))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.faults))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.overflows))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.peaks))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.rejected))
	assert.Equal(t, 74.0, testutil.ToFloat64(s.averageHR))
}

func TestModeChanged(t *testing.T) {
	s, err := newService()
	require.NoError(t, err)

	s.ModeChanged("live_monitor")
	s.ModeChanged("menu")

	assert.Equal(t, 1, testutil.CollectAndCount(s.mode))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.mode.WithLabelValues("menu")))
}

func TestSessionCompleted(t *testing.T) {
	s, err := newService()
	require.NoError(t, err)

	s.SessionCompleted("basic_hrv", nil)
	s.SessionCompleted("basic_hrv", nil)
	s.SessionCompleted("cloud_hrv", errors.New().New(errors.ErrCollaborator))

	assert.Equal(t, 2.0, testutil.ToFloat64(s.sessions.WithLabelValues("basic_hrv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.sessions.WithLabelValues("cloud_hrv", "collaborator_error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	s, err := newService()
	require.NoError(t, err)
	s.PeakDetected()
	s.PeakDetected()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hrvmon_peaks_total 2")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewServiceDisabled(t *testing.T) {
	c, err := NewService(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, noopCollector{}, c)

	c.PeakDetected()
	c.SessionCompleted("basic_hrv", nil)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{Enabled: true, Listen: ":9464"}.Validate())
	assert.True(t, errors.HasCode(Config{Enabled: true}.Validate(), ErrInvalidListen))
	assert.True(t, errors.HasCode(Config{Enabled: true, Listen: "nonsense"}.Validate(), ErrInvalidListen))

	_, err := NewService(Config{Enabled: true, Listen: "nonsense"})
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}

func TestServe(t *testing.T) {
	s, err := newService()
	require.NoError(t, err)
	s.SampleAcquired()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, s, logger.Default()) }()

	url := "http://" + ln.Addr().String() + "/metrics"
	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, string(body), "hrvmon_samples_total 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
