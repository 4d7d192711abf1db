package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fuelqueue-system/models"
)

var (
	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fuelqueue_queue_length",
			Help: "Current queue length per station and status class",
		},
		[]string{"station_id", "status"},
	)

	stationStock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fuelqueue_station_stock_liters",
			Help: "Estimated remaining stock per station",
		},
		[]string{"station_id"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuelqueue_queue_operations_total",
			Help: "Total queue operations by outcome",
		},
		[]string{"operation", "station_id", "status"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuelqueue_notifications_total",
			Help: "Call-up notifications by outcome",
		},
		[]string{"status"},
	)
)

// StatsSource provides the per-station snapshot the Monitor polls.
type StatsSource interface {
	QueueStats(ctx context.Context) ([]models.StationQueueStats, error)
}

type Monitor struct {
	stats StatsSource
}

// NewMonitor starts a background collection loop over the given source.
func NewMonitor(stats StatsSource) *Monitor {
	monitor := &Monitor{stats: stats}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectQueueMetrics(context.Background())
	}
}

func (m *Monitor) collectQueueMetrics(ctx context.Context) {
	stats, err := m.stats.QueueStats(ctx)
	if err != nil {
		slog.Warn("queue metrics collection failed", "error", err)
		return
	}

	for _, st := range stats {
		queueLength.WithLabelValues(st.StationID, models.StatusWaiting).Set(float64(st.WaitingCount))
		queueLength.WithLabelValues(st.StationID, models.StatusCalled).Set(float64(st.CalledCount))
		stationStock.WithLabelValues(st.StationID).Set(st.Stock.InexactFloat64())
	}
}

// TrackQueueOperation counts a ledger operation outcome.
func (m *Monitor) TrackQueueOperation(operation, stationID, status string) {
	queueOperations.WithLabelValues(operation, stationID, status).Inc()
}

// TrackNotification counts a call-up notification outcome.
func (m *Monitor) TrackNotification(sent bool) {
	if sent {
		notifications.WithLabelValues("sent").Inc()
	} else {
		notifications.WithLabelValues("failed").Inc()
	}
}
