package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	applogger "PlantDash/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
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

// fakePaho only implements what Client calls.
type fakePaho struct {
	paho.Client
	token        paho.Token
	topic        string
	retained     bool
	disconnected bool
}

func (f *fakePaho) Publish(topic string, _ byte, retained bool, _ interface{}) paho.Token {
	f.topic, f.retained = topic, retained
	return f.token
}

func (f *fakePaho) Disconnect(uint) { f.disconnected = true }

func newFakeClient(token paho.Token, publishTimeout time.Duration) (*Client, *fakePaho) {
	fp := &fakePaho{token: token}
	cfg := newConfig("tcp://localhost:1883", WithTimeouts(time.Second, publishTimeout))
	return &Client{client: fp, cfg: cfg, log: applogger.Nop()}, fp
}

func TestConfigOptions(t *testing.T) {
	cfg := newConfig("tcp://broker:1883")
	assert.Equal(t, "plantdash", cfg.ClientID)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.PublishTimeout)

	cfg = newConfig("tcp://broker:1883",
		WithClientID("plantdash-sim"),
		WithCredentials("user", "secret"),
		WithTimeouts(2*time.Second, time.Second),
	)
	po := cfg.clientOptions(applogger.Nop())
	require.Len(t, po.Servers, 1)
	assert.Equal(t, "tcp://broker:1883", po.Servers[0].String())
	assert.Equal(t, "plantdash-sim", po.ClientID)
	assert.Equal(t, "user", po.Username)
	assert.Equal(t, "secret", po.Password)
	assert.Equal(t, 2*time.Second, po.ConnectTimeout)
	assert.True(t, po.AutoReconnect)
	assert.True(t, po.CleanSession)
	assert.Equal(t, time.Second, cfg.PublishTimeout)
}

func TestNewClientUnreachableBroker(t *testing.T) {
	_, err := NewClient("tcp://127.0.0.1:1", WithTimeouts(500*time.Millisecond, time.Second))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to mqtt broker tcp://127.0.0.1:1")
}

func TestPublish(t *testing.T) {
	c, fp := newFakeClient(doneToken(nil), time.Second)
	require.NoError(t, c.Publish(context.Background(), "plantcare/dashboard", 1, true, []byte("{}")))
	assert.Equal(t, "plantcare/dashboard", fp.topic)
	assert.True(t, fp.retained)

	c.Disconnect()
	assert.True(t, fp.disconnected)
}

func TestPublishBrokerError(t *testing.T) {
	c, _ := newFakeClient(doneToken(errors.New("not authorized")), time.Second)
	err := c.Publish(context.Background(), "plantcare/weight", 0, false, nil)
	assert.EqualError(t, err, "publish to plantcare/weight: not authorized")
}

func TestPublishTimeout(t *testing.T) {
	pending := &fakeToken{done: make(chan struct{})}

	c, _ := newFakeClient(pending, 20*time.Millisecond)
	err := c.Publish(context.Background(), "plantcare/weight", 0, false, nil)
	assert.EqualError(t, err, "publish to plantcare/weight: timeout")

	c, _ = newFakeClient(pending, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Publish(ctx, "plantcare/weight", 0, false, nil), context.Canceled)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Error(t, c.Publish(context.Background(), "plantcare/weight", 0, false, nil))
	assert.NotPanics(t, c.Disconnect)
}
