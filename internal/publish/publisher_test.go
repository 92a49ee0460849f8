package publish

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/hrv"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	token        func() mqtt.Token
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic, qos, retained, payload.([]byte)})
	return c.token()
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

var stats = hrv.Statistics{
	Time:    time.Now(),
	MeanPPI: 812.5,
	MeanHR:  74,
	SDNN:    25.5,
	RMSSD:   15.55,
}

func TestPublishPayload(t *testing.T) {
	fc := &fakeClient{token: func() mqtt.Token { return completedToken(nil) }}
	p := NewMQTTPublisher(fc, Config{Broker: "tcp://localhost:1883", QoS: 1}, nil)

	p.Publish(stats)
	p.Flush()

	require.Len(t, fc.messages, 1)
	msg := fc.messages[0]
	assert.Equal(t, "Group2", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.False(t, msg.retained)
	assert.JSONEq(t, `{"mean_hr":74,"mean_ppi":812.5,"rmssd":15.55,"sdnn":25.5}`, string(msg.payload))

	var decoded Payload
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, NewPayload(stats), decoded)
	assert.Equal(t, uint64(1), p.Sent())
	assert.Equal(t, uint64(0), p.Failed())
}

func TestPublishFailureIsCounted(t *testing.T) {
	fc := &fakeClient{token: func() mqtt.Token { return completedToken(assert.AnError) }}
	p := NewMQTTPublisher(fc, Config{Broker: "tcp://localhost:1883", Topic: "custom"}, nil)

	p.Publish(stats)
	p.Flush()

	assert.Equal(t, "custom", fc.messages[0].topic)
	assert.Equal(t, uint64(0), p.Sent())
	assert.Equal(t, uint64(1), p.Failed())
}

func TestPublishDoesNotBlock(t *testing.T) {
	pending := &fakeToken{done: make(chan struct{})}
	fc := &fakeClient{token: func() mqtt.Token { return pending }}
	p := NewMQTTPublisher(fc, Config{Broker: "tcp://localhost:1883", PublishTimeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	p.Publish(stats)
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	require.NoError(t, p.Close())
	assert.True(t, fc.disconnected)
	assert.Equal(t, uint64(1), p.Failed())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{Broker: "tcp://broker:1883"}},
		{name: "missing broker", cfg: Config{}, wantErr: true},
		{name: "bad qos", cfg: Config{Broker: "tcp://broker:1883", QoS: 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.HasCode(err, ErrInvalidConfig))
		})
	}
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	_, err := Connect(Config{}, nil)
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}
