// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutorhub/backend/internal/models"
)

type Metrics struct {
	registry *prometheus.Registry

	xpAwarded        *prometheus.CounterVec
	xpActivities     *prometheus.CounterVec
	badgesUnlocked   *prometheus.CounterVec
	levelUps         prometheus.Counter
	coursesCompleted prometheus.Counter
	quizAttempts     *prometheus.CounterVec
	lessonsCompleted prometheus.Counter
}

// New registers the engine counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		xpAwarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gamification_xp_awarded_total",
			Help: "Total XP awarded, by reason",
		}, []string{"reason"}),
		xpActivities: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gamification_xp_activities_total",
			Help: "XP ledger entries appended, by reason",
		}, []string{"reason"}),
		badgesUnlocked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gamification_badges_unlocked_total",
			Help: "Badges unlocked, by badge key",
		}, []string{"badge"}),
		levelUps: f.NewCounter(prometheus.CounterOpts{
			Name: "gamification_level_ups_total",
			Help: "Operations that raised a user's level",
		}),
		coursesCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "progress_courses_completed_total",
			Help: "Enrollments that reached COMPLETED",
		}),
		quizAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_attempts_total",
			Help: "Quiz attempts scored, by pass/fail",
		}, []string{"passed"}),
		lessonsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "progress_lessons_completed_total",
			Help: "First-time lesson completions",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCommit records the ledger entries and unlocks of one committed
// operation.
func (m *Metrics) ObserveCommit(awards []models.XPActivity, unlocked []models.Badge, leveledUp bool) {
	if m == nil {
		return
	}
	for _, a := range awards {
		m.xpAwarded.WithLabelValues(a.Reason).Add(float64(a.Amount))
		m.xpActivities.WithLabelValues(a.Reason).Inc()
	}
	for _, b := range unlocked {
		m.badgesUnlocked.WithLabelValues(b.Key).Inc()
	}
	if leveledUp {
		m.levelUps.Inc()
	}
}

func (m *Metrics) CourseCompleted() {
	if m == nil {
		return
	}
	m.coursesCompleted.Inc()
}

func (m *Metrics) LessonCompleted() {
	if m == nil {
		return
	}
	m.lessonsCompleted.Inc()
}

func (m *Metrics) QuizAttempt(passed bool) {
	if m == nil {
		return
	}
	m.quizAttempts.WithLabelValues(strconv.FormatBool(passed)).Inc()
}
