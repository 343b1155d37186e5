package di

import (
	"context"
	"fmt"
	"time"

	"PlantDash/internal/domain/models"
	"PlantDash/internal/domain/repository"
	dsvc "PlantDash/internal/domain/service"
	"PlantDash/internal/handler/api"
	mid "PlantDash/internal/middleware"
	internalrepo "PlantDash/internal/repository"
	"PlantDash/internal/service/device"
	svcmetrics "PlantDash/internal/service/metrics"
	"PlantDash/internal/service/ratelimit"
	"PlantDash/internal/services/render"
	"PlantDash/internal/services/series"
	"PlantDash/internal/services/station"
	"PlantDash/internal/usecase"
	"PlantDash/pkg/cache"
	"PlantDash/pkg/config"
	xhttp "PlantDash/pkg/http"
	pkgkafka "PlantDash/pkg/kafka"
	applogger "PlantDash/pkg/logger"
	"PlantDash/pkg/metrics"
	pkgmqtt "PlantDash/pkg/mqtt"
	"PlantDash/pkg/server"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry scraped at /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideRenderMetrics creates the per-format render recorder.
func ProvideRenderMetrics(reg *prometheus.Registry) *svcmetrics.RenderMetrics {
	return svcmetrics.NewRenderMetrics(reg)
}

// ProvideCache creates the bundle cache: in-memory, or memory in front of Redis when enabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	rc := cfg.Cache.Redis
	if !rc.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(time.Minute),
		), nil
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisAddr(rc.Host, rc.Port),
		cache.WithRedisURL(rc.URL),
		cache.WithRedisPassword(rc.Password),
		cache.WithRedisDB(rc.DB),
		cache.WithRedisPrefix(rc.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache, cfg.Cache.MemoryMaxSize, cfg.Dashboard.RefreshTTL), nil
}

// ProvideBundleStore keeps the last good bundle in the cache for one refresh TTL.
func ProvideBundleStore(c cache.Service, cfg *config.Config) repository.BundleStore {
	return internalrepo.NewCacheBundleStore(c, cfg.Dashboard.RefreshTTL)
}

// ProvideSnapshotSource creates the HTTP client for the device.
func ProvideSnapshotSource(cfg *config.Config, log *applogger.Logger) repository.SnapshotSource {
	return device.New(cfg.Device.Name, cfg.Device.URL, cfg.Device.Timeout, log)
}

// ProvideAggregator creates the series aggregator with the configured averaging mode.
func ProvideAggregator(cfg *config.Config) dsvc.Aggregator {
	return series.New(series.WithAveraging(repository.NormalizeAveraging(cfg.Dashboard.Averaging)))
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.AutoCreate),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideMQTTClient connects to the broker, or returns nil when MQTT is disabled.
func ProvideMQTTClient(cfg *config.Config, log *applogger.Logger) (*pkgmqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		return nil, nil
	}
	return newMQTTClient(cfg, log, "plantdash-dashboard")
}

func newMQTTClient(cfg *config.Config, log *applogger.Logger, role string) (*pkgmqtt.Client, error) {
	id := cfg.MQTT.ClientID
	if id == "" {
		id = role + "-" + uuid.NewString()[:8]
	}
	client, err := pkgmqtt.NewClient(cfg.MQTT.Broker,
		pkgmqtt.WithClientID(id),
		pkgmqtt.WithCredentials(cfg.MQTT.Username, cfg.MQTT.Password),
		pkgmqtt.WithTimeouts(cfg.MQTT.ConnectTimeout, cfg.MQTT.PublishTimeout),
		pkgmqtt.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	return client, nil
}

// ProvidePublisher fans bundle summaries out to every enabled backend.
func ProvidePublisher(
	producer *pkgkafka.Producer,
	mqttClient *pkgmqtt.Client,
	m repository.Metrics,
	cfg *config.Config,
) *internalrepo.MultiPublisher {
	var backends []internalrepo.NamedPublisher
	if producer != nil {
		backends = append(backends, internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic))
	}
	if mqttClient != nil {
		backends = append(backends, internalrepo.NewMQTTPublisher(mqttClient, cfg.MQTT.Topic, byte(cfg.MQTT.QoS)))
	}
	return internalrepo.NewMultiPublisher(m, backends...)
}

// ProvidePublishPipeline throttles and buffers summary publishing.
func ProvidePublishPipeline(
	pub *internalrepo.MultiPublisher,
	m repository.Metrics,
	cfg *config.Config,
	log *applogger.Logger,
) *mid.PublishPipeline {
	return mid.NewPublishPipeline(pub, m,
		mid.WithMaxRPS(cfg.Pipeline.MaxPerSecond),
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
		mid.WithLogger(log),
	)
}

// ProvideDashboardController creates the controller for the configured device.
func ProvideDashboardController(
	cfg *config.Config,
	src repository.SnapshotSource,
	agg dsvc.Aggregator,
	m repository.Metrics,
	store repository.BundleStore,
	pub *internalrepo.MultiPublisher,
	pipeline *mid.PublishPipeline,
	rm *svcmetrics.RenderMetrics,
	log *applogger.Logger,
) *usecase.DashboardController {
	opts := []usecase.ControllerOption{
		usecase.WithTitle(cfg.Dashboard.Title),
		usecase.WithTTL(cfg.Dashboard.RefreshTTL),
		usecase.WithRefreshTimeout(cfg.Device.Timeout*2),
		usecase.WithBundleStore(store),
		usecase.WithRenderObserver(rm),
		usecase.WithControllerLogger(log),
	}
	if pub.Len() > 0 {
		opts = append(opts, usecase.WithSummaryProcessor(pipeline))
	}
	return usecase.NewDashboardController(cfg.Device.Name, src, agg, m, opts...)
}

// ProvideRateLimiter creates the per-IP limiter for forced refreshes.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideDashboardHandler creates the dashboard HTTP handler.
func ProvideDashboardHandler(
	cfg *config.Config,
	log *applogger.Logger,
	ctrl *usecase.DashboardController,
	limiter *ratelimit.Limiter,
) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(log, ctrl, limiter, api.Renderers{
		Page:      render.NewChartJS(cfg.Dashboard.ChartJSURL),
		Workbook:  render.NewXLSX(),
		PNGWidth:  cfg.Render.PNGWidth,
		PNGHeight: cfg.Render.PNGHeight,
	})
}

// ProvideHTTPServer creates the dashboard HTTP server.
func ProvideHTTPServer(
	cfg *config.Config,
	log *applogger.Logger,
	reg *prometheus.Registry,
	h *api.DashboardEchoHandler,
) *xhttp.Server {
	return newServer(cfg, log, reg, cfg.Server.Port, h)
}

func newServer(cfg *config.Config, log *applogger.Logger, reg *prometheus.Registry, port int, handlers ...xhttp.Handler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(log),
		xhttp.WithMetrics(metricsPath, reg, reg),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
	)
}

// ProvideApp assembles the dashboard application. Shutdown order: HTTP server,
// janitor, pipeline, then log collector, publishers and cache.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	limiter *ratelimit.Limiter,
	pub *internalrepo.MultiPublisher,
	pipeline *mid.PublishPipeline,
	producer *pkgkafka.Producer,
	c cache.Service,
) *server.App {
	app := server.New(log, srv)
	app.SetShutdownTimeout(cfg.Server.ShutdownTimeout + 5*time.Second)
	if pub.Len() > 0 {
		app.AddComponent(pipeline)
	}
	app.AddComponent(ratelimit.NewJanitor(limiter, time.Minute, log))

	if cfg.Kafka.LogTopic != "" && producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
		// flush collected logs while the producer is still open
		app.AddCloser("log-collector", closerFunc(func() error {
			log.RemoveCollector()
			return nil
		}))
	}
	// publishers own the kafka producer and the mqtt client
	app.AddCloser("publishers", pub)
	app.AddCloser("cache", c)
	return app
}

// ProvideStation creates the simulated station from the simulator config.
func ProvideStation(cfg *config.Config) *station.Station {
	st := station.New(plantConfig(cfg.Simulator))
	st.SetWateringTime(models.WateringTime{
		Scale:  cfg.Simulator.WaterTime.Scale,
		Offset: cfg.Simulator.WaterTime.Offset,
	})
	return st
}

func plantConfig(sc config.SimulatorConfig) models.ThresholdConfig {
	return models.ThresholdConfig{
		Max:        sc.Plant.Max,
		Low:        sc.Plant.Low,
		Dst:        sc.Plant.Dst,
		Range:      sc.Plant.Range,
		WaterHour:  sc.Plant.WaterHour,
		WaterStart: sc.Plant.WaterStart,
		Refill:     sc.Plant.Refill,
		UpdateHour: sc.Plant.UpdateHour,
	}
}

// ProvideTelemetryPublisher connects the simulator to MQTT, or returns nil when disabled.
func ProvideTelemetryPublisher(cfg *config.Config, log *applogger.Logger) (*pkgmqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		return nil, nil
	}
	return newMQTTClient(cfg, log, "plantdash-sim")
}

// ProvideSimulator creates the simulator and backfills its history.
func ProvideSimulator(cfg *config.Config, st *station.Station, mqttClient *pkgmqtt.Client, log *applogger.Logger) *station.Simulator {
	sc := cfg.Simulator
	opts := []station.SimulatorOption{station.WithSimulatorLogger(log)}
	if mqttClient != nil {
		opts = append(opts, station.WithPublisher(mqttClient))
	}
	sim := station.NewSimulator(st, station.Params{
		Plant:           plantConfig(sc),
		StartWeight:     sc.StartWeight,
		DryoutPerMinute: sc.DryoutPerMinute,
		Scale:           sc.Scale,
		Noise:           sc.Noise,
		Seed:            sc.Seed,
		Tick:            sc.Tick,
		Backfill:        sc.BackfillHours,
		Topic:           cfg.MQTT.Topic,
	}, opts...)
	sim.Backfill(context.Background())
	return sim
}

// ProvideSimulatorServer serves the station document on the simulator port.
func ProvideSimulatorServer(cfg *config.Config, log *applogger.Logger, reg *prometheus.Registry, st *station.Station) *xhttp.Server {
	return newServer(cfg, log, reg, cfg.Simulator.Port, api.NewStationEchoHandler(st))
}

// ProvideSimulatorApp assembles the simulator application.
func ProvideSimulatorApp(cfg *config.Config, log *applogger.Logger, srv *xhttp.Server, sim *station.Simulator, mqttClient *pkgmqtt.Client) *server.App {
	app := server.New(log, srv)
	app.SetShutdownTimeout(cfg.Server.ShutdownTimeout + 5*time.Second)
	app.AddComponent(sim)
	if mqttClient != nil {
		app.AddCloser("mqtt", closerFunc(func() error {
			mqttClient.Disconnect()
			return nil
		}))
	}
	return app
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
