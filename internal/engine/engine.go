// Package engine is the single entry point for learning events. Each write
// runs in one transaction; metrics and the leaderboard see it after commit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/catalog"
	"github.com/tutorhub/backend/internal/database"
	"github.com/tutorhub/backend/internal/gamification"
	"github.com/tutorhub/backend/internal/leaderboard"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/metrics"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/progress"
	"github.com/tutorhub/backend/internal/quiz"
)

type Engine struct {
	db      *sqlx.DB
	gam     *gamification.Service
	tracker *progress.Tracker
	quizzes *quiz.Service
	catalog *catalog.Store
	rewards gamification.Rewards
	board   leaderboard.Board
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
	loc     *time.Location
}

type Options struct {
	Rewards  gamification.Rewards
	Location *time.Location
	Now      func() time.Time
	Board    leaderboard.Board
	Metrics  *metrics.Metrics
}

func New(db *sqlx.DB, gam *gamification.Service, tracker *progress.Tracker, quizzes *quiz.Service, cat *catalog.Store, log *logger.Logger, opts Options) *Engine {
	if opts.Rewards == nil {
		opts.Rewards = gamification.DefaultRewards()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		db:      db,
		gam:     gam,
		tracker: tracker,
		quizzes: quizzes,
		catalog: cat,
		rewards: opts.Rewards,
		board:   opts.Board,
		metrics: opts.Metrics,
		log:     log.With("component", "engine"),
		now:     opts.Now,
		loc:     opts.Location,
	}
}

// today is the server's calendar day in the streak timezone.
func (e *Engine) today() models.Date {
	return models.DateOf(e.now().In(e.loc))
}

// run executes fn in a transaction. A unique violation means a concurrent
// request won the race; the rerun then sees its rows and resolves to a
// no-op.
func (e *Engine) run(ctx context.Context, op string, fn func(gt *gamification.Tx) error) (*gamification.Tx, error) {
	var gt *gamification.Tx
	attempt := func() error {
		return database.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
			gt = e.gam.Begin(ctx, tx)
			return fn(gt)
		})
	}

	err := attempt()
	if database.IsUniqueViolation(err) {
		e.log.Warn("unique violation, rerunning", "op", op, "error", err)
		err = attempt()
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return gt, nil
}

// publish feeds a committed transaction to metrics and the leaderboard.
// Failures here never fail the request.
func (e *Engine) publish(ctx context.Context, gt *gamification.Tx, outcome models.Outcome) {
	e.metrics.ObserveCommit(gt.Awards, gt.Unlocked, outcome.LeveledUp)
	if e.board == nil {
		return
	}
	for userID, total := range gt.Totals() {
		if err := e.board.Update(ctx, userID, total); err != nil {
			e.log.Warn("leaderboard update failed", "user_id", userID, "error", err)
		}
	}
}

// ── Activities ──────────────────────────────────────────

// RecordActivity pays the configured XP for a client-reported activity.
// LOGIN is scoped to the current day and counts toward the streak.
func (e *Engine) RecordActivity(ctx context.Context, userID int64, reason gamification.Reason, sourceID *int64) (*models.ActivityResult, error) {
	switch reason {
	case gamification.ReasonLogin, gamification.ReasonHelpPeer,
		gamification.ReasonSessionAttend, gamification.ReasonGroupJoin:
	default:
		return nil, fmt.Errorf("%w: %s is recorded by its own operation", models.ErrInvalidReason, reason)
	}
	amount, _ := e.rewards.For(reason)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %s pays no xp", models.ErrInvalidReason, reason)
	}

	today := e.today()
	if reason == gamification.ReasonLogin {
		key := today.Key()
		sourceID = &key
	}

	res := &models.ActivityResult{Reason: string(reason)}
	gt, err := e.run(ctx, "record activity", func(gt *gamification.Tx) error {
		if _, err := gt.Award(userID, amount, reason, sourceID); err != nil {
			return err
		}
		if reason == gamification.ReasonLogin {
			streak, err := gt.UpdateStreak(userID, today)
			if err != nil {
				return err
			}
			res.Streak = streak
		}
		res.Outcome = gt.Outcome(userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, gt, res.Outcome)
	return res, nil
}

// Award writes straight to the ledger. Staff tooling uses it for manual
// grants.
func (e *Engine) Award(ctx context.Context, userID int64, amount int, reason gamification.Reason, sourceID *int64) (*models.AwardResult, error) {
	var res *models.AwardResult
	gt, err := e.run(ctx, "award xp", func(gt *gamification.Tx) error {
		var err error
		res, err = gt.Award(userID, amount, reason, sourceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, gt, models.Outcome{LeveledUp: res.LeveledUp})
	return res, nil
}

// ── Lessons & Quizzes ───────────────────────────────────

func (e *Engine) MarkLessonComplete(ctx context.Context, studentID, lessonID int64) (*models.LessonCompletion, error) {
	today := e.today()

	var res *models.LessonCompletion
	gt, err := e.run(ctx, "mark lesson complete", func(gt *gamification.Tx) error {
		var err error
		res, err = e.tracker.MarkLessonComplete(gt, studentID, lessonID, today)
		if err != nil {
			return err
		}
		res.Outcome = gt.Outcome(studentID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.AlreadyCompleted {
		e.metrics.LessonCompleted()
	}
	if res.CourseCompleted {
		e.metrics.CourseCompleted()
	}
	e.publish(ctx, gt, res.Outcome)
	return res, nil
}

// SubmitQuizAttempt scores an attempt. Passing a required quiz re-evaluates
// the course enrollment with the same predicate lessons use.
func (e *Engine) SubmitQuizAttempt(ctx context.Context, studentID, quizID int64, answers []models.Answer, timeTakenSeconds int) (*models.QuizSubmission, error) {
	var res *models.QuizSubmission
	gt, err := e.run(ctx, "submit quiz attempt", func(gt *gamification.Tx) error {
		sub, quiz, err := e.quizzes.SubmitAttempt(gt, studentID, quizID, answers, timeTakenSeconds)
		if err != nil {
			return err
		}
		if sub.Passed && quiz.Required {
			update, err := e.tracker.RecomputeEnrollment(gt, studentID, quiz.CourseID)
			switch {
			case errors.Is(err, models.ErrNotEnrolled):
			case err != nil:
				return err
			default:
				sub.CourseCompleted = update.CourseCompleted
			}
		}
		sub.Outcome = gt.Outcome(studentID)
		res = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.QuizAttempt(res.Passed)
	if res.CourseCompleted {
		e.metrics.CourseCompleted()
	}
	e.publish(ctx, gt, res.Outcome)
	return res, nil
}

// ── Reviews ─────────────────────────────────────────────

// SubmitReview stores an enrolled student's review. A second review of the
// same course returns the first one unchanged.
func (e *Engine) SubmitReview(ctx context.Context, studentID, courseID int64, rating int, body string) (*models.ReviewResult, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be within 1..5", models.ErrInvalidInput)
	}

	res := &models.ReviewResult{}
	gt, err := e.run(ctx, "submit review", func(gt *gamification.Tx) error {
		ctx, q := gt.Context(), gt.Ext()
		if _, err := e.catalog.GetCourse(ctx, q, courseID); err != nil {
			return err
		}
		if _, err := gt.Progress(studentID); err != nil {
			return err
		}
		enrolled, err := e.catalog.IsEnrolled(ctx, q, studentID, courseID)
		if err != nil {
			return err
		}
		if !enrolled {
			return models.ErrNotEnrolled
		}

		review := models.Review{
			CourseID:  courseID,
			StudentID: studentID,
			Rating:    rating,
			Body:      strings.TrimSpace(body),
			CreatedAt: gt.Now(),
		}
		inserted, err := e.catalog.InsertReview(ctx, q, &review)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := e.catalog.GetReview(ctx, q, courseID, studentID)
			if err != nil {
				return err
			}
			res.Review = *existing
			res.AlreadyReviewed = true
		} else {
			res.Review = review
			if _, err := gt.EvaluateBadges(studentID); err != nil {
				return err
			}
		}
		res.Outcome = gt.Outcome(studentID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, gt, res.Outcome)
	return res, nil
}

// ── Reads ───────────────────────────────────────────────

func (e *Engine) Snapshot(ctx context.Context, userID int64) (*models.ProgressSnapshot, error) {
	return e.gam.Snapshot(ctx, e.db, userID)
}

func (e *Engine) CourseProgress(ctx context.Context, studentID, courseID int64) (*models.CourseProgress, error) {
	if _, err := e.catalog.GetCourse(ctx, e.db, courseID); err != nil {
		return nil, err
	}
	return e.tracker.CourseProgress(ctx, e.db, studentID, courseID)
}

func (e *Engine) Sections(ctx context.Context, studentID, courseID int64) ([]models.SectionStatus, error) {
	return e.tracker.Sections(ctx, e.db, studentID, courseID)
}

func (e *Engine) Quiz(ctx context.Context, quizID int64) (*models.QuizView, error) {
	return e.quizzes.View(ctx, e.db, quizID)
}

func (e *Engine) QuizAttempts(ctx context.Context, studentID, quizID int64) (*models.AttemptHistory, error) {
	return e.quizzes.History(ctx, e.db, studentID, quizID)
}
