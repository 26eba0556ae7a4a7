// The consumer drains trip telemetry from Kafka and keeps the Redis fleet
// index current. It runs separately from the API so a slow Redis or a burst
// of telemetry never backs up HTTP request handling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/example/fleet-routing/internal/config"
	"github.com/example/fleet-routing/internal/fleet"
	"github.com/example/fleet-routing/internal/logging"
	"github.com/example/fleet-routing/internal/models"
)

var (
	messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleet_routing", Subsystem: "consumer",
		Name: "messages_total", Help: "Telemetry messages consumed",
	})
	malformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleet_routing", Subsystem: "consumer",
		Name: "malformed_total", Help: "Messages dropped as malformed",
	})
	updateFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleet_routing", Subsystem: "consumer",
		Name: "update_failures_total", Help: "Fleet index updates that exhausted retries",
	})
)

const (
	maxUpdateAttempts = 3
	retryBackoff      = 200 * time.Millisecond
)

// IndexUpdater is the slice of the fleet tracker the consumer needs.
type IndexUpdater interface {
	Upsert(p models.VehiclePosition)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS is required for the consumer")
		os.Exit(1)
	}
	if cfg.RedisAddr == "" {
		logger.Error("REDIS_ADDR is required for the consumer")
		os.Exit(1)
	}

	tracker := fleet.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.FleetGeoKey)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: "fleet-index-updater",
	})
	defer reader.Close()

	metricsAddr := os.Getenv("CONSUMER_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("consumer starting", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("consumer stopping")
				return
			}
			logger.Error("read failed", "error", err)
			continue
		}
		messagesTotal.Inc()

		var pos models.VehiclePosition
		if err := json.Unmarshal(msg.Value, &pos); err != nil || pos.VehicleID == "" {
			malformedTotal.Inc()
			logger.Warn("dropping malformed message", "offset", msg.Offset, "error", err)
			continue
		}

		if err := updateWithRetry(ctx, tracker, pos); err != nil {
			updateFailuresTotal.Inc()
			logger.Error("fleet index update failed", "vehicle", pos.VehicleID, "error", err)
		}
	}
}

// updateWithRetry retries transient index failures with a fixed backoff.
// Upsert itself swallows per-command errors, so the retry loop guards the
// panic-on-closed-client case and gives Redis time to come back.
func updateWithRetry(ctx context.Context, u IndexUpdater, pos models.VehiclePosition) (err error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err = tryUpsert(u, pos)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	return err
}

func tryUpsert(u IndexUpdater, pos models.VehiclePosition) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("upsert panicked")
		}
	}()
	u.Upsert(pos)
	return nil
}
