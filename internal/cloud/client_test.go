package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKubios struct {
	tokenCalls    atomic.Int32
	analyzeCalls  atomic.Int32
	analyzeStatus int
	received      analysisRequest
	response      string
}

func (f *fakeKubios) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)

		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client", r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600,"token_type":"Bearer"}`))
	})

	mux.HandleFunc("/v2/analytics/analyze", func(w http.ResponseWriter, r *http.Request) {
		f.analyzeCalls.Add(1)

		if r.Header.Get("Authorization") != "Bearer tok-1" || r.Header.Get("X-Api-Key") != "key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.received))

		if f.analyzeStatus != 0 {
			w.WriteHeader(f.analyzeStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.response))
	})

	return mux
}

const okResponse = `{
  "status": "ok",
  "analysis": {
    "create_timestamp": "2026-03-01T09:31:02.123456+00:00",
    "mean_rr_ms": 812.4,
    "mean_hr_bpm": 73.5,
    "sdnn_ms": 41.2,
    "rmssd_ms": 35.7
  }
}`

func newTestClient(t *testing.T, f *fakeKubios) *Client {
	t.Helper()

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		TokenURL:     srv.URL + "/oauth2/token",
		AnalysisURL:  srv.URL + "/v2/analytics/analyze",
		ClientID:     "client",
		ClientSecret: "secret",
		APIKey:       "key",
		Timeout:      2 * time.Second,
	}, nil)
	require.NoError(t, err)

	return c
}

func TestAnalyze(t *testing.T) {
	f := &fakeKubios{response: okResponse}
	c := newTestClient(t, f)

	stats, err := c.Analyze(context.Background(), []int{800, 810, 790, 805})
	require.NoError(t, err)

	assert.InDelta(t, 812.4, stats.MeanPPI, 1e-9)
	assert.Equal(t, 74, stats.MeanHR)
	assert.InDelta(t, 41.2, stats.SDNN, 1e-9)
	assert.InDelta(t, 35.7, stats.RMSSD, 1e-9)
	assert.True(t, stats.Time.Equal(time.Date(2026, 3, 1, 9, 31, 2, 123456000, time.UTC)))

	assert.Equal(t, "RRI", f.received.Type)
	assert.Equal(t, []int{800, 810, 790, 805}, f.received.Data)
	assert.Equal(t, "readiness", f.received.Analysis.Type)
}

func TestTokenIsReused(t *testing.T) {
	f := &fakeKubios{response: okResponse}
	c := newTestClient(t, f)

	for i := 0; i < 3; i++ {
		_, err := c.Analyze(context.Background(), []int{800, 800})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), f.tokenCalls.Load())
	assert.Equal(t, int32(3), f.analyzeCalls.Load())
}

func TestTokenRefreshedAfterExpiry(t *testing.T) {
	f := &fakeKubios{response: okResponse}
	c := newTestClient(t, f)

	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.Analyze(context.Background(), []int{800, 800})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = c.Analyze(context.Background(), []int{800, 800})
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeKubios
		secret   string
		ppis     []int
		wantCode errors.ErrorCode
	}{
		{
			name:     "no data",
			fake:     &fakeKubios{response: okResponse},
			ppis:     nil,
			wantCode: ErrNoData,
		},
		{
			name:     "bad credentials",
			fake:     &fakeKubios{response: okResponse},
			secret:   "wrong",
			ppis:     []int{800},
			wantCode: ErrToken,
		},
		{
			name:     "server error",
			fake:     &fakeKubios{analyzeStatus: http.StatusInternalServerError},
			ppis:     []int{800},
			wantCode: ErrStatus,
		},
		{
			name:     "analysis status not ok",
			fake:     &fakeKubios{response: `{"status":"error","analysis":{}}`},
			ppis:     []int{800},
			wantCode: ErrResponse,
		},
		{
			name:     "missing fields",
			fake:     &fakeKubios{response: `{"status":"ok"}`},
			ppis:     []int{800},
			wantCode: ErrResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.fake)
			c.http.SetRetryCount(0)
			if tt.secret != "" {
				c.cfg.ClientSecret = tt.secret
			}

			_, err := c.Analyze(context.Background(), tt.ppis)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	f := &fakeKubios{response: okResponse}
	c := newTestClient(t, f)
	c.http.SetRetryCount(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Analyze(ctx, []int{800})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrToken))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))

	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.APIKey = "key"
	assert.NoError(t, cfg.Validate())

	_, err = NewClient(Config{}, nil)
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}
