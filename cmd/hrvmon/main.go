package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/hrvmon/internal/clock"
	"codeberg.org/mutker/hrvmon/internal/cloud"
	"codeberg.org/mutker/hrvmon/internal/config"
	"codeberg.org/mutker/hrvmon/internal/display"
	"codeberg.org/mutker/hrvmon/internal/history"
	"codeberg.org/mutker/hrvmon/internal/input"
	"codeberg.org/mutker/hrvmon/internal/logger"
	"codeberg.org/mutker/hrvmon/internal/metrics"
	"codeberg.org/mutker/hrvmon/internal/mode"
	"codeberg.org/mutker/hrvmon/internal/pid"
	"codeberg.org/mutker/hrvmon/internal/ppg"
	"codeberg.org/mutker/hrvmon/internal/publish"
	"codeberg.org/mutker/hrvmon/internal/ring"
	"codeberg.org/mutker/hrvmon/internal/sensor"
	"codeberg.org/mutker/hrvmon/internal/telemetry"
	"github.com/spf13/afero"
)

const welcomeDelay = 3 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The screen owns stdout.
	logger.InitWithWriter(os.Stderr, cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	pidPath := pid.DefaultPath()
	if err := pid.Write(pidPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go handleSignals(cancel)

	err := run(ctx)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}

	if err := pid.Remove(pidPath); err != nil {
		logger.Error().Err(err).Msg("failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")

	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Default()

	tel, err := telemetry.NewService(telemetry.Config{
		Enabled: cfg.Telemetry.Enabled,
		Listen:  cfg.Telemetry.Listen,
	})
	if err != nil {
		return err
	}
	if cfg.Telemetry.Enabled {
		go func() {
			if err := telemetry.Serve(ctx, cfg.Telemetry.Listen, tel, log); err != nil {
				logger.Error().Err(err).Msg("telemetry endpoint stopped")
			}
		}()
	}

	src, err := openSensor()
	if err != nil {
		return err
	}
	defer src.Close()

	samples := ring.New[uint16](cfg.QueueCapacity)
	events := ring.New[input.Event](cfg.InputQueueCapacity)
	clk := clock.System()

	sampler := sensor.NewSampler(src, samples, cfg.SamplePeriod(), tel)
	defer sampler.Stop()

	encoder := input.NewEncoder(events, clk, cfg.Debounce)
	go func() {
		if err := input.NewKeySource(os.Stdin, encoder).Run(ctx); err != nil {
			logger.Warn().Err(err).Msg("key input stopped")
		}
	}()

	pipeline := ppg.NewPipeline(ppg.Config{
		FilterWindow:    cfg.FilterWindow,
		ThresholdWindow: cfg.QueueCapacity,
		ThresholdFactor: cfg.ThresholdFactor,
		SamplePeriodMs:  cfg.SamplePeriodMs(),
		MinHR:           cfg.MinHR,
		MaxHR:           cfg.MaxHR,
		HRWindow:        cfg.HRWindow,
	})

	sessions, err := metrics.NewService(metrics.Config{
		Enabled:      cfg.Metrics.Enabled,
		DBPath:       cfg.Metrics.DBPath,
		BatchSize:    cfg.Metrics.BatchSize,
		BatchTimeout: cfg.Metrics.BatchTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close session log")
		}
	}()

	screen := display.NewConsole(os.Stdout, !logger.IsService())

	deps := mode.Deps{
		Clock:     clk,
		Samples:   samples,
		Events:    events,
		Pipeline:  pipeline,
		Sampler:   sampler,
		Display:   screen,
		History:   history.NewFileStore(afero.NewOsFs(), cfg.HistoryFile),
		Sessions:  sessions,
		Telemetry: tel,
		Logger:    log,
		Source:    cfg.Sensor,
	}

	if cfg.Cloud.Enabled {
		client, err := cloud.NewClient(cloud.Config{
			TokenURL:     cfg.Cloud.TokenURL,
			AnalysisURL:  cfg.Cloud.AnalysisURL,
			ClientID:     cfg.Cloud.ClientID,
			ClientSecret: cfg.Cloud.ClientSecret,
			APIKey:       cfg.Cloud.APIKey,
			Timeout:      cfg.Cloud.Timeout,
			RetryCount:   2,
		}, log)
		if err != nil {
			return err
		}
		deps.Analyzer = client
	}

	if cfg.MQTT.Enabled {
		publisher, err := publish.Connect(publish.Config{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
		}, log)
		if err != nil {
			// Results are still shown locally without a broker.
			logger.Warn().Err(err).Msg("MQTT unavailable, results will not be published")
		} else {
			defer publisher.Close()
			deps.Publisher = publisher
		}
	}

	ctrl, err := mode.New(mode.Config{
		SessionDuration: cfg.SessionDuration,
		DisplayRefresh:  cfg.DisplayRefresh,
		CloudTimeout:    cfg.Cloud.Timeout,
	}, deps)
	if err != nil {
		return err
	}

	logger.Info().
		Str("sensor", cfg.Sensor).
		Int("sample_rate", cfg.SampleRate).
		Bool("cloud", cfg.Cloud.Enabled).
		Bool("mqtt", deps.Publisher != nil).
		Bool("session_log", cfg.Metrics.Enabled).
		Msg("Heart rate monitor started")

	screen.ShowWelcome()
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(welcomeDelay):
	}

	return ctrl.Run(ctx)
}

func openSensor() (sensor.Sensor, error) {
	switch cfg.Sensor {
	case config.SensorSerial:
		s, err := sensor.OpenSerial(cfg.SerialPort, sensor.PortOptions{
			BaudRate: cfg.SerialBaud,
		}, logger.Default())
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return sensor.NewSynthetic(cfg.SyntheticBPM, cfg.SampleRate), nil
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
