package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quest_sessions_opened_total",
		Help: "Total number of quest sessions opened or resumed.",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quest_sessions_active",
		Help: "Number of sessions currently in the session store.",
	})

	linesDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quest_lines_delivered_total",
		Help: "Total number of branch lines sent to users.",
	})

	staleActionsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_stale_actions_dropped_total",
			Help: "Scheduled delivery actions dropped because their session was closed or superseded.",
		},
		[]string{"action"},
	)

	achievementsGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_achievements_granted_total",
			Help: "Total number of achievements granted by achievement id.",
		},
		[]string{"achievement"},
	)

	endingsReachedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_endings_reached_total",
			Help: "Total number of endings reached by branch id.",
		},
		[]string{"branch"},
	)

	answersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_answers_total",
			Help: "User answers by result (accepted, ignored, dangling).",
		},
		[]string{"result"},
	)
)
