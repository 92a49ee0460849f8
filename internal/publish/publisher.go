// Package publish sends session results to an MQTT broker.
package publish

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/hrv"
	"codeberg.org/mutker/hrvmon/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	DefaultTopic          = "Group2"
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesceMs   = 250
)

type Config struct {
	Broker         string
	Topic          string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Broker == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "mqtt broker is required")
	}
	if c.QoS > 2 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			QoS byte
		}{
			QoS: c.QoS,
		})
	}
	return nil
}

// Payload is the JSON message published for a basic HRV session.
type Payload struct {
	MeanHR  int     `json:"mean_hr"`
	MeanPPI float64 `json:"mean_ppi"`
	RMSSD   float64 `json:"rmssd"`
	SDNN    float64 `json:"sdnn"`
}

func NewPayload(stats hrv.Statistics) Payload {
	return Payload{
		MeanHR:  stats.MeanHR,
		MeanPPI: stats.MeanPPI,
		RMSSD:   stats.RMSSD,
		SDNN:    stats.SDNN,
	}
}

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes results without blocking the caller. Delivery is
// confirmed in the background and failures are only logged.
type MQTTPublisher struct {
	client client
	cfg    Config
	log    logger.Logger

	wg     sync.WaitGroup
	sent   atomic.Uint64
	failed atomic.Uint64
}

// Connect dials the broker and returns a publisher using it.
func Connect(cfg Config, log logger.Logger) (*MQTTPublisher, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Default()
	}
	cfg = withDefaults(cfg)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, errFactory.WithMessage(ErrConnect, "timed out connecting to "+cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errFactory.Wrap(ErrConnect, err)
	}

	return NewMQTTPublisher(c, cfg, log), nil
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(c client, cfg Config, log logger.Logger) *MQTTPublisher {
	if log == nil {
		log = logger.Default()
	}

	return &MQTTPublisher{
		client: c,
		cfg:    withDefaults(cfg),
		log:    log,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "hrvmon_" + uuid.NewString()[:8]
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	return cfg
}

// Publish sends stats to the configured topic and returns immediately.
func (p *MQTTPublisher) Publish(stats hrv.Statistics) {
	data, err := json.Marshal(NewPayload(stats))
	if err != nil {
		p.failed.Add(1)
		p.log.ErrorWithCode(errors.New().Wrap(ErrEncode, err)).Msg("Failed to encode MQTT payload")
		return
	}

	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, data)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if !token.WaitTimeout(p.cfg.PublishTimeout) {
			p.failed.Add(1)
			p.log.Warn().Str("topic", p.cfg.Topic).Msg("MQTT publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			p.failed.Add(1)
			p.log.Warn().Err(err).Str("topic", p.cfg.Topic).Msg("MQTT publish failed")
			return
		}

		p.sent.Add(1)
		p.log.Debug().Str("topic", p.cfg.Topic).Int("bytes", len(data)).Msg("Published session result")
	}()
}

// Flush waits for outstanding deliveries to be confirmed or time out.
func (p *MQTTPublisher) Flush() {
	p.wg.Wait()
}

func (p *MQTTPublisher) Sent() uint64 {
	return p.sent.Load()
}

func (p *MQTTPublisher) Failed() uint64 {
	return p.failed.Load()
}

// Close flushes and disconnects.
func (p *MQTTPublisher) Close() error {
	p.Flush()
	p.client.Disconnect(disconnectQuiesceMs)
	return nil
}
