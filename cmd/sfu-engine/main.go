package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/relaymesh/engine/internal/config"
	"github.com/relaymesh/engine/internal/profiling"
	"github.com/relaymesh/engine/internal/telemetry"
	"github.com/relaymesh/engine/internal/transport"
)

func main() {
	configFilePath := flag.String("config", "config.yaml", "configuration file path")
	addr := flag.String("addr", ":8080", "address to listen on for websocket connections")
	cpuProfile := flag.String("cpuProfile", "", "write CPU profile to `file`")
	memProfile := flag.String("memProfile", "", "write memory profile to `file`")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})

	var stopProfiling []func()
	if *cpuProfile != "" {
		stopProfiling = append(stopProfiling, profiling.InitCPUProfiling(*cpuProfile))
	}
	if *memProfile != "" {
		stopProfiling = append(stopProfiling, profiling.InitMemoryProfiling(*memProfile))
	}
	defer func() {
		for _, stop := range stopProfiling {
			stop()
		}
	}()

	live, err := config.WatchConfig(*configFilePath)
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
		return
	}
	defer live.Close()

	applyLogLevel(live.Current().LogLevel)

	// The trace exporter is usually a sidecar collector that may not be up
	// yet on first boot; retry with backoff rather than failing the whole
	// process over a transient dial error.
	var tp telemetrySetupResult
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = telemetrySetupMaxElapsed
	err = backoff.Retry(func() error {
		provider, setupErr := telemetry.SetupTelemetry(live.Current().Telemetry)
		if setupErr != nil {
			logrus.WithError(setupErr).Warn("telemetry setup failed, retrying")
			return setupErr
		}
		tp.provider = provider
		return nil
	}, retry)
	if err != nil {
		logrus.WithError(err).Fatal("could not set up telemetry")
		return
	}

	rooms := transport.NewRooms(live)

	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Path[len("/rooms/"):]
		if roomID == "" {
			http.Error(w, "room id is required", http.StatusBadRequest)
			return
		}
		transport.Accept(rooms.Get(roomID), w, r)
	})

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("websocket server stopped")
		}
	}()

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logrus.Info("shutting down")
	server.Close()                             //nolint:errcheck
	tp.provider.Shutdown(context.Background()) //nolint:errcheck
}

const telemetrySetupMaxElapsed = 30 * time.Second

type telemetrySetupResult struct {
	provider interface {
		Shutdown(ctx context.Context) error
	}
}

func applyLogLevel(level string) {
	switch level {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
