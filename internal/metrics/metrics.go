package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created by status.",
		},
		[]string{"status"},
	)

	reservationCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "reservation_cancelled_total",
			Help:      "Count of reservations cancelled.",
		},
	)

	capacityConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "capacity_conflict_total",
			Help:      "Count of reservation attempts rejected for capacity.",
		},
	)

	stageAdvanced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "qualification_stage_advanced_total",
			Help:      "Count of qualification stage advances by stage.",
		},
		[]string{"stage"},
	)

	scheduleCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "schedule_cache_requests_total",
			Help:      "Count of schedule cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationCreated, reservationCancelled, capacityConflicts, stageAdvanced, scheduleCacheHits)
	})
}

func IncReservationCreated(status string) {
	reservationCreated.WithLabelValues(status).Inc()
}

func IncReservationCancelled() {
	reservationCancelled.Inc()
}

func IncCapacityConflict() {
	capacityConflicts.Inc()
}

func IncStageAdvanced(stage string) {
	stageAdvanced.WithLabelValues(stage).Inc()
}

func IncScheduleCache(outcome string) {
	scheduleCacheHits.WithLabelValues(outcome).Inc()
}
