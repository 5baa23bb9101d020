package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eddielth/rainwise2mqtt/config"
	"github.com/eddielth/rainwise2mqtt/discovery"
	"github.com/eddielth/rainwise2mqtt/logger"
	"github.com/eddielth/rainwise2mqtt/metrics"
	"github.com/eddielth/rainwise2mqtt/mqtt"
	"github.com/eddielth/rainwise2mqtt/poller"
	"github.com/eddielth/rainwise2mqtt/station"
	"github.com/eddielth/rainwise2mqtt/transformer"
	"github.com/eddielth/rainwise2mqtt/weather"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "config.yaml", "optional YAML config file")
	flag.Parse()

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("failed to load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config: %v", err)
		return 1
	}

	if err := logger.InitFromConfig(cfg.Logger.Level, cfg.Logger.FilePath, cfg.Logger.Console); err != nil {
		logger.Warn("failed to initialize logger from config: %v", err)
	}
	defer logger.Close()

	logger.Info("--- starting Rainwise to MQTT bridge ---")

	metadata, err := discovery.LoadMetadata(cfg.Discovery.MetadataPath)
	if err != nil {
		logger.Error("failed to load discovery metadata: %v", err)
		return 1
	}

	transformerManager, err := transformer.NewManager(cfg.Transformer)
	if err != nil {
		logger.Error("failed to initialize transformer: %v", err)
		return 1
	}
	if transformerManager.Enabled() {
		logger.Info("readings transform script enabled")
	}

	mqttClient, err := mqtt.NewClient(cfg.MQTT)
	if err != nil {
		logger.Error("failed to initialize MQTT client: %v", err)
		return 1
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var metricsServer *metrics.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, reg, mqttClient.IsConnected)
		metricsServer.Start()
	}

	err = config.WatchConfig(configPath, func(newCfg *config.Config) error {
		if err := transformerManager.Reload(newCfg.Transformer); err != nil {
			return err
		}
		logger.Info("other config changes take effect after restart")
		return nil
	})
	if err != nil {
		logger.Debug("config file not watched: %v", err)
	}

	units := cfg.UnitSystem()
	p := poller.New(station.NewClient(cfg.Station), mqttClient, transformerManager, m, poller.Options{
		Units:      units,
		Normalizer: weather.Normalizer{Sets: cfg.FieldSets()},
		Generator:  discovery.NewGenerator(cfg.MQTT.DiscoveryPrefix, metadata, units),
		Device:     cfg.Device,
		StateTopic: cfg.MQTT.StateTopic,
		Interval:   cfg.PollInterval(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := p.Run(ctx); err != nil {
		logger.Error("failed to connect to MQTT, exiting: %v", err)
		code = 1
	}

	if metricsServer != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shCtx)
	}

	logger.Info("--- application stopped ---")
	return code
}
