package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// origin: local|mirror|empty
	stateLoadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_load_total",
			Help: "Snapshot loads by origin",
		},
		[]string{"origin"},
	)

	stateSaveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_save_total",
			Help: "Local snapshot saves",
		},
		[]string{"status"}, // success|failure
	)

	// op: pull|push, result: success|conflict|error|skipped
	stateMirrorOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_mirror_operations_total",
			Help: "Remote mirror operations by result",
		},
		[]string{"op", "result"},
	)

	stateRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "state_records",
			Help: "Records held in the last saved snapshot",
		},
	)
)
