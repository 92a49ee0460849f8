// Package cloud submits PPI sequences to the Kubios HRV analysis service.
package cloud

import (
	"context"
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/hrv"
	"codeberg.org/mutker/hrvmon/internal/logger"
	"github.com/go-resty/resty/v2"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type analysisRequest struct {
	Type     string       `json:"type"`
	Data     []int        `json:"data"`
	Analysis analysisType `json:"analysis"`
}

type analysisType struct {
	Type string `json:"type"`
}

type analysisResponse struct {
	Status   string         `json:"status"`
	Analysis analysisResult `json:"analysis"`
}

type analysisResult struct {
	CreateTimestamp string  `json:"create_timestamp"`
	MeanRRMs        float64 `json:"mean_rr_ms"`
	MeanHRBpm       float64 `json:"mean_hr_bpm"`
	SDNNMs          float64 `json:"sdnn_ms"`
	RMSSDMs         float64 `json:"rmssd_ms"`
}

// Client obtains a client-credentials token and runs readiness analyses.
type Client struct {
	http *resty.Client
	cfg  Config
	log  logger.Logger
	now  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Default()
	}

	http := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http: http,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}, nil
}

// Analyze submits ppis (ms) for a readiness analysis and returns the
// service's statistics.
func (c *Client) Analyze(ctx context.Context, ppis []int) (hrv.Statistics, error) {
	errFactory := errors.New()

	if len(ppis) == 0 {
		return hrv.Statistics{}, errFactory.New(ErrNoData)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return hrv.Statistics{}, err
	}

	body := analysisRequest{
		Type:     "RRI",
		Data:     ppis,
		Analysis: analysisType{Type: "readiness"},
	}

	var out analysisResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("X-Api-Key", c.cfg.APIKey).
		SetBody(body).
		SetResult(&out).
		Post(c.cfg.AnalysisURL)
	if err != nil {
		return hrv.Statistics{}, errFactory.Wrap(ErrRequest, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
			c.invalidate()
		}
		return hrv.Statistics{}, errFactory.WithData(ErrStatus, struct {
			Status int
			Body   string
		}{
			Status: resp.StatusCode(),
			Body:   resp.String(),
		})
	}
	if out.Status != "" && out.Status != "ok" {
		return hrv.Statistics{}, errFactory.WithMessage(ErrResponse, "analysis status "+out.Status)
	}
	if out.Analysis.MeanRRMs <= 0 {
		return hrv.Statistics{}, errFactory.WithMessage(ErrResponse, "analysis missing mean_rr_ms")
	}

	stats := hrv.Statistics{
		MeanPPI: out.Analysis.MeanRRMs,
		MeanHR:  int(math.RoundToEven(out.Analysis.MeanHRBpm)),
		SDNN:    out.Analysis.SDNNMs,
		RMSSD:   out.Analysis.RMSSDMs,
	}
	if ts := out.Analysis.CreateTimestamp; ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			stats.Time = t
		} else {
			c.log.Debug().Str("create_timestamp", ts).Msg("Unparseable analysis timestamp")
		}
	}

	c.log.Debug().
		Int("ppis", len(ppis)).
		Int("mean_hr", stats.MeanHR).
		Msg("Cloud analysis completed")

	return stats, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	errFactory := errors.New()

	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
			"client_id":  c.cfg.ClientID,
		}).
		SetResult(&out).
		Post(c.cfg.TokenURL)
	if err != nil {
		return "", errFactory.Wrap(ErrToken, err)
	}
	if resp.IsError() {
		return "", errFactory.WithData(ErrToken, struct {
			Status int
			Body   string
		}{
			Status: resp.StatusCode(),
			Body:   resp.String(),
		})
	}
	if out.AccessToken == "" {
		return "", errFactory.WithMessage(ErrToken, "empty access token")
	}

	c.token = out.AccessToken
	c.expires = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenLeeway)

	return c.token, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
