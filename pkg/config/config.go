package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"PlantDash/pkg/logger"
	"PlantDash/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Logger      logger.Config `yaml:"logger"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Device struct {
		Name    string        `yaml:"name" default:"plant"`
		URL     string        `yaml:"url" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"device"`
	Dashboard struct {
		Title      string        `yaml:"title" default:"Plant Care"`
		RefreshTTL time.Duration `yaml:"refresh_ttl" default:"30s"`
		Averaging  string        `yaml:"averaging" default:"dry" validate:"oneof=dry inclusive"`
		ChartJSURL string        `yaml:"chartjs_url" default:"https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"`
	} `yaml:"dashboard"`
	Render struct {
		PNGWidth  int `yaml:"png_width" default:"1024" validate:"gte=100,lte=4096"`
		PNGHeight int `yaml:"png_height" default:"400" validate:"gte=100,lte=4096"`
	} `yaml:"render"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"3"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"0.2"`
	} `yaml:"ratelimit"`
	Cache struct {
		MemoryMaxSize int `yaml:"memory_max_size" default:"64"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			URL      string `yaml:"url"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"plantdash"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"plantdash.bundles"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		AutoCreate   bool     `yaml:"auto_create_topics" default:"true"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"16"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		Broker   string `yaml:"broker" default:"tcp://localhost:1883"`
		Topic    string `yaml:"topic" default:"plantcare"`
		ClientID string `yaml:"client_id"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		QoS      int    `yaml:"qos" default:"1" validate:"gte=0,lte=2"`

		ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`
		PublishTimeout time.Duration `yaml:"publish_timeout" default:"5s"`
	} `yaml:"mqtt"`
	Pipeline struct {
		MaxPerSecond int `yaml:"max_per_second" default:"1"`
		BufferSize   int `yaml:"buffer_size" default:"64"`
	} `yaml:"pipeline"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// SimulatorConfig drives the synthetic plant station.
type SimulatorConfig struct {
	Port            int           `yaml:"port" default:"8090" validate:"gte=1,lte=65535"`
	Tick            time.Duration `yaml:"tick" default:"1m"`
	StartWeight     float64       `yaml:"start_weight" default:"1200"`
	DryoutPerMinute float64       `yaml:"dryout_per_minute" default:"0.05"`
	Scale           float64       `yaml:"scale" default:"40"`
	Noise           float64       `yaml:"noise" default:"0.5"`
	Seed            int64         `yaml:"seed" default:"1"`
	BackfillHours   int           `yaml:"backfill_hours" default:"48" validate:"gte=0,lte=288"`
	Plant           struct {
		Max        float64 `yaml:"max" default:"6000"`
		Low        float64 `yaml:"low" default:"1050"`
		Dst        float64 `yaml:"dst" default:"1150"`
		Range      float64 `yaml:"range" default:"20"`
		WaterHour  int     `yaml:"waterhour" default:"7" validate:"gte=0,lte=23"`
		WaterStart int     `yaml:"start" default:"500" validate:"gte=0"`
		Refill     int     `yaml:"refill" default:"10" validate:"gte=0"`
		UpdateHour int     `yaml:"updatehour" default:"9" validate:"gte=0,lte=23"`
	} `yaml:"plant"`
	// WaterTime is the pump calibration the station starts from.
	WaterTime struct {
		Scale  int `yaml:"scale" default:"25" validate:"gte=0"`
		Offset int `yaml:"offset" default:"0" validate:"gte=0"`
	} `yaml:"watertime"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	// defaults first so explicit zero values in the file (cors: false) survive
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PLANTDASH_DEVICE_URL"); v != "" {
		c.Device.URL = v
	}
	if v := os.Getenv("PLANTDASH_DEVICE_NAME"); v != "" {
		c.Device.Name = v
	}
	c.Server.Port = util.ParseIntDefault(os.Getenv("PLANTDASH_PORT"), c.Server.Port)
	if v := os.Getenv("PLANTDASH_LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	c.Kafka.Enabled = util.ParseBoolDefault(os.Getenv("KAFKA_ENABLED"), c.Kafka.Enabled)
	c.MQTT.Enabled = util.ParseBoolDefault(os.Getenv("MQTT_ENABLED"), c.MQTT.Enabled)
	c.Cache.Redis.Enabled = util.ParseBoolDefault(os.Getenv("REDIS_ENABLED"), c.Cache.Redis.Enabled)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if u, err := url.Parse(c.Device.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("device.url must be an http(s) url, got '%s'", c.Device.URL)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.RateLimit.Capacity < 1 {
		return fmt.Errorf("ratelimit.capacity must be at least 1")
	}
	if c.Simulator.Plant.Low > c.Simulator.Plant.Dst {
		return fmt.Errorf("simulator.plant.low must not exceed simulator.plant.dst")
	}
	return nil
}
