package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AchievementsUnlocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshies", Name: "achievements_unlocked_total", Help: "Achievements unlocked, by tier",
	}, []string{"tier"})
	EvaluationsAbsorbed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshies", Name: "evaluation_errors_total", Help: "Store errors absorbed during achievement evaluation",
	}, []string{"stage"})
	PointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "freshies", Name: "points_awarded_total", Help: "Points awarded to children",
	})
	LevelUps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "freshies", Name: "level_ups_total", Help: "Level-up transitions",
	})
	RoutineCompletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshies", Name: "routine_completions_total", Help: "Recorded routine completions",
	}, []string{"segment"})
	NotificationsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshies", Name: "notifications_dispatched_total", Help: "Notification dispatch outcomes",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(
		AchievementsUnlocked,
		EvaluationsAbsorbed,
		PointsAwarded,
		LevelUps,
		RoutineCompletions,
		NotificationsDispatched,
	)
}
