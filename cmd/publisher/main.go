package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/kirbo/go-telemetry/internal/broker"
	"github.com/kirbo/go-telemetry/internal/config"
	"github.com/kirbo/go-telemetry/internal/diag"
	"github.com/kirbo/go-telemetry/internal/mirror"
	"github.com/kirbo/go-telemetry/internal/network"
	"github.com/kirbo/go-telemetry/internal/publisher"
	"github.com/kirbo/go-telemetry/internal/sensors"
)

func main() {
	var (
		configPath = flag.StringP("config", "c", "./config.json", "path to the JSON config file")
		logLevel   = flag.String("log-level", "", "overrides LOG_LEVEL")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("invalid log level")
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sensorDriver, battery, err := sensors.Open(ctx, cfg.Sensors, log.WithField("component", "sensors"))
	if err != nil {
		log.WithError(err).Fatal("opening sensors")
	}

	client := broker.New(cfg.MQTT, log.WithField("component", "broker"))
	defer client.Close(250 * time.Millisecond)

	var link network.Link = network.NewInterfaces(cfg.Network.Interface)
	if cfg.Network.SessionTracking() {
		link = network.WithSession(link, client)
	}

	var sinks []publisher.Sink
	if cfg.Redis.Enabled() {
		rdb := mirror.Connect(cfg.Redis)
		defer rdb.Close()
		sinks = append(sinks, mirror.New(rdb, log.WithField("component", "mirror")))
	}

	ctl := publisher.New(publisher.OptionsFromConfig(cfg), publisher.Deps{
		Network: link,
		Broker:  client,
		Sensors: sensorDriver,
		Battery: battery,
		Sinks:   sinks,
		Logger:  log,
	})

	log.WithFields(logrus.Fields{
		"broker": broker.BrokerURL(cfg.MQTT),
		"topic":  cfg.MQTT.Topic,
		"period": cfg.PublishPeriod(),
	}).Info("starting publisher")

	// Without the initial session there is nothing to recover to.
	if err := ctl.Init(); err != nil {
		log.WithError(err).Fatal("initial broker session failed")
	}

	if cfg.DiagAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		go func() {
			if err := diag.Serve(ctx, cfg.DiagAddr, diag.Router(ctl), log.WithField("component", "diag")); err != nil {
				log.WithError(err).Error("diagnostics server stopped")
			}
		}()
	}

	if err := ctl.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("publisher stopped")
	}
	log.Info("publisher stopped")
}
