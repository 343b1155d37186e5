package mqtt

import (
	"context"
	"fmt"
	"time"

	applogger "PlantDash/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Option configures Client.
type Option func(*Config)

// Config holds broker connection settings.
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	Logger         *applogger.Logger
}

// WithCredentials sets broker username and password.
func WithCredentials(user, pass string) Option {
	return func(c *Config) {
		c.Username = user
		c.Password = pass
	}
}

// WithClientID sets the client id presented to the broker.
func WithClientID(id string) Option {
	return func(c *Config) {
		c.ClientID = id
	}
}

// WithTimeouts sets how long connect and publish wait for the broker.
func WithTimeouts(connect, publish time.Duration) Option {
	return func(c *Config) {
		c.ConnectTimeout = connect
		c.PublishTimeout = publish
	}
}

// WithLogger sets the logger for connection events and handler errors.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// Client wraps a paho client.
type Client struct {
	client paho.Client
	cfg    *Config
	log    *applogger.Logger
}

// NewClient connects to broker.
func NewClient(broker string, opts ...Option) (*Client, error) {
	cfg := newConfig(broker, opts...)
	log := cfg.Logger
	if log == nil {
		log = applogger.Nop()
	}

	client := paho.NewClient(cfg.clientOptions(log))
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, err)
	}

	return &Client{client: client, cfg: cfg, log: log}, nil
}

func newConfig(broker string, opts ...Option) *Config {
	cfg := &Config{
		Broker:         broker,
		ClientID:       "plantdash",
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (cfg *Config) clientOptions(log *applogger.Logger) *paho.ClientOptions {
	po := paho.NewClientOptions()
	po.AddBroker(cfg.Broker)
	po.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		po.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		po.SetPassword(cfg.Password)
	}
	po.SetAutoReconnect(true)
	po.SetCleanSession(true)
	po.SetConnectTimeout(cfg.ConnectTimeout)
	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn("mqtt connection lost", applogger.String("broker", cfg.Broker), applogger.Error(err))
	})
	po.SetOnConnectHandler(func(_ paho.Client) {
		log.Info("mqtt connected", applogger.String("broker", cfg.Broker), applogger.String("client_id", cfg.ClientID))
	})
	return po
}

// Publish sends payload and waits for the broker until ctx ends or the publish timeout elapses.
func (c *Client) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("publish to %s: mqtt client not connected", topic)
	}
	token := c.client.Publish(topic, qos, retained, payload)

	timeout := c.cfg.PublishTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	case <-time.After(timeout):
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Disconnect closes the connection, giving in-flight work 250ms.
func (c *Client) Disconnect() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Disconnect(250)
}
