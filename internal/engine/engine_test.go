package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/catalog"
	"github.com/tutorhub/backend/internal/config"
	"github.com/tutorhub/backend/internal/database"
	"github.com/tutorhub/backend/internal/gamification"
	"github.com/tutorhub/backend/internal/leaderboard"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/metrics"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/progress"
	"github.com/tutorhub/backend/internal/quiz"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	db      *sqlx.DB
	clock   *clock
	engine  *Engine
	catalog *catalog.Service
	quizzes *quiz.Service
	gam     *gamification.Service
	board   *leaderboard.SQLBoard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.DBConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "test.db")}
	if err := database.Migrate(cfg); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	log := logger.Nop()
	rewards := gamification.DefaultRewards()

	gam := gamification.NewService(gamification.NewStore(db), log, clk.Now)
	if err := gam.SeedBadges(ctx); err != nil {
		t.Fatalf("SeedBadges() error = %v", err)
	}
	tracker := progress.NewTracker(progress.NewStore(db), rewards, 80, log)
	quizzes := quiz.NewService(quiz.NewStore(db), rewards, log)
	cat := catalog.NewService(catalog.NewStore(db), quizzes, log, clk.Now)
	board := leaderboard.NewSQLBoard(db)

	e := New(db, gam, tracker, quizzes, cat.Store(), log, Options{
		Rewards: rewards,
		Now:     clk.Now,
		Board:   board,
		Metrics: metrics.New(),
	})

	return &fixture{t: t, ctx: ctx, db: db, clock: clk, engine: e, catalog: cat, quizzes: quizzes, gam: gam, board: board}
}

func (f *fixture) user(name, role string) int64 {
	f.t.Helper()
	email := fmt.Sprintf("%s@example.com", name)
	u, err := auth.CreateUser(f.ctx, f.db, email, name, "x", role, f.clock.Now())
	if err != nil {
		f.t.Fatalf("CreateUser(%s) error = %v", name, err)
	}
	return u.ID
}

// course builds a course owned by tutorID with one section per entry of
// lessonsPerSection and returns its id and lesson ids in order.
func (f *fixture) course(tutorID int64, lessonsPerSection ...int) (int64, []int64) {
	f.t.Helper()
	c, err := f.catalog.CreateCourse(f.ctx, tutorID, models.RoleTutor, models.CreateCourseRequest{Title: "Algebra"})
	if err != nil {
		f.t.Fatalf("CreateCourse() error = %v", err)
	}
	var lessons []int64
	for si, n := range lessonsPerSection {
		sec, err := f.catalog.CreateSection(f.ctx, tutorID, models.RoleTutor, c.ID,
			models.CreateSectionRequest{Title: fmt.Sprintf("Section %d", si+1), Position: si})
		if err != nil {
			f.t.Fatalf("CreateSection() error = %v", err)
		}
		for li := 0; li < n; li++ {
			l, err := f.catalog.CreateLesson(f.ctx, tutorID, models.RoleTutor, sec.ID,
				models.CreateLessonRequest{Title: fmt.Sprintf("Lesson %d.%d", si+1, li+1), Position: li})
			if err != nil {
				f.t.Fatalf("CreateLesson() error = %v", err)
			}
			lessons = append(lessons, l.ID)
		}
	}
	return c.ID, lessons
}

func (f *fixture) enroll(studentID, courseID int64) {
	f.t.Helper()
	if _, err := f.catalog.Enroll(f.ctx, studentID, courseID); err != nil {
		f.t.Fatalf("Enroll() error = %v", err)
	}
}

func (f *fixture) quiz(tutorID, courseID int64, questions int, required bool) int64 {
	f.t.Helper()
	req := models.CreateQuizRequest{Title: "Checkpoint", Required: required}
	for i := 0; i < questions; i++ {
		req.Questions = append(req.Questions, models.CreateQuizQuestion{
			Prompt:             fmt.Sprintf("Question %d", i+1),
			Options:            []string{"a", "b", "c", "d"},
			CorrectOptionIndex: i % 4,
		})
	}
	qz, err := f.catalog.CreateQuiz(f.ctx, tutorID, models.RoleTutor, courseID, req)
	if err != nil {
		f.t.Fatalf("CreateQuiz() error = %v", err)
	}
	return qz.ID
}

// answers returns a full answer sheet with exactly correct right answers.
func (f *fixture) answers(quizID int64, correct int) []models.Answer {
	f.t.Helper()
	qs, err := f.quizzes.Store().ListQuestions(f.ctx, f.db, quizID)
	if err != nil {
		f.t.Fatalf("ListQuestions() error = %v", err)
	}
	out := make([]models.Answer, 0, len(qs))
	for i, q := range qs {
		idx := q.CorrectOptionIndex
		if i >= correct {
			idx = (idx + 1) % len(q.Options)
		}
		out = append(out, models.Answer{QuestionID: q.ID, SelectedOptionIndex: idx})
	}
	return out
}

func (f *fixture) progress(userID int64) *models.UserProgress {
	f.t.Helper()
	p, err := f.gam.Store().GetProgress(f.ctx, f.db, userID, false)
	if err != nil {
		f.t.Fatalf("GetProgress(%d) error = %v", userID, err)
	}
	return p
}

func (f *fixture) count(userID int64, reason gamification.Reason) int {
	f.t.Helper()
	n, err := f.gam.Store().CountXPActivities(f.ctx, f.db, userID, reason)
	if err != nil {
		f.t.Fatalf("CountXPActivities() error = %v", err)
	}
	return n
}

// assertConserved checks that the stored total equals the ledger sum.
func (f *fixture) assertConserved(userID int64) {
	f.t.Helper()
	sum, err := f.gam.Store().SumXP(f.ctx, f.db, userID)
	if err != nil {
		f.t.Fatalf("SumXP() error = %v", err)
	}
	p := f.progress(userID)
	if sum != p.TotalXP {
		f.t.Errorf("ledger sum = %d, total_xp = %d", sum, p.TotalXP)
	}
	if want := gamification.Level(p.TotalXP); p.CurrentLevel != want {
		f.t.Errorf("current_level = %d, want %d for %d xp", p.CurrentLevel, want, p.TotalXP)
	}
}

func (f *fixture) complete(studentID, lessonID int64) *models.LessonCompletion {
	f.t.Helper()
	res, err := f.engine.MarkLessonComplete(f.ctx, studentID, lessonID)
	if err != nil {
		f.t.Fatalf("MarkLessonComplete(%d) error = %v", lessonID, err)
	}
	return res
}

// ── Ledger ──────────────────────────────────────────────

func TestAwardIsIdempotentPerSource(t *testing.T) {
	f := newFixture(t)
	u := f.user("Ada Lovelace", models.RoleStudent)
	lesson := int64(7)

	first, err := f.engine.Award(f.ctx, u, 10, gamification.ReasonLessonComplete, &lesson)
	if err != nil {
		t.Fatalf("Award() error = %v", err)
	}
	second, err := f.engine.Award(f.ctx, u, 10, gamification.ReasonLessonComplete, &lesson)
	if err != nil {
		t.Fatalf("second Award() error = %v", err)
	}

	if first.XPAwarded != 10 || first.NewXP != 10 {
		t.Errorf("first award = %+v, want 10 awarded", first)
	}
	if second.XPAwarded != 0 || second.NewXP != 10 {
		t.Errorf("second award = %+v, want no-op at 10", second)
	}
	if n := f.count(u, gamification.ReasonLessonComplete); n != 1 {
		t.Errorf("LESSON_COMPLETE rows = %d, want 1", n)
	}
	f.assertConserved(u)
}

func TestAwardLevelUp(t *testing.T) {
	f := newFixture(t)
	u := f.user("Grace Hopper", models.RoleStudent)

	res, err := f.engine.Award(f.ctx, u, 400, gamification.ReasonHelpPeer, nil)
	if err != nil {
		t.Fatalf("Award() error = %v", err)
	}
	if res.PreviousLevel != 1 || res.NewLevel != 3 || !res.LeveledUp {
		t.Errorf("Award(400) = %+v, want level 1 -> 3", res)
	}

	// Unscoped reasons append every time.
	if _, err := f.engine.Award(f.ctx, u, 15, gamification.ReasonHelpPeer, nil); err != nil {
		t.Fatalf("Award() error = %v", err)
	}
	if n := f.count(u, gamification.ReasonHelpPeer); n != 2 {
		t.Errorf("HELP_PEER rows = %d, want 2", n)
	}
	f.assertConserved(u)
}

func TestAwardErrors(t *testing.T) {
	f := newFixture(t)
	u := f.user("Alan Turing", models.RoleStudent)
	src := int64(1)

	tests := []struct {
		name   string
		user   int64
		amount int
		reason gamification.Reason
		source *int64
		want   error
	}{
		{"zero amount", u, 0, gamification.ReasonHelpPeer, nil, models.ErrInvalidAmount},
		{"negative amount", u, -5, gamification.ReasonHelpPeer, nil, models.ErrInvalidAmount},
		{"missing source", u, 10, gamification.ReasonLessonComplete, nil, models.ErrSourceRequired},
		{"unknown user", 9999, 10, gamification.ReasonQuizPass, &src, models.ErrUserNotFound},
	}

	for _, tt := range tests {
		_, err := f.engine.Award(f.ctx, tt.user, tt.amount, tt.reason, tt.source)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}

	if sum, _ := f.gam.Store().SumXP(f.ctx, f.db, u); sum != 0 {
		t.Errorf("ledger sum after failed awards = %d, want 0", sum)
	}
}

func TestRecordActivityRejectsEngineReasons(t *testing.T) {
	f := newFixture(t)
	u := f.user("Edsger Dijkstra", models.RoleStudent)
	src := int64(3)

	for _, r := range []gamification.Reason{
		gamification.ReasonLessonComplete,
		gamification.ReasonQuizPass,
		gamification.ReasonCourseComplete,
		gamification.ReasonStreakBonus,
	} {
		if _, err := f.engine.RecordActivity(f.ctx, u, r, &src); !errors.Is(err, models.ErrInvalidReason) {
			t.Errorf("RecordActivity(%s) error = %v, want ErrInvalidReason", r, err)
		}
	}
}

// ── Streaks ─────────────────────────────────────────────

func TestLoginStreakConsecutiveDays(t *testing.T) {
	f := newFixture(t)
	u := f.user("Barbara Liskov", models.RoleStudent)

	for day := 1; day <= 3; day++ {
		res, err := f.engine.RecordActivity(f.ctx, u, gamification.ReasonLogin, nil)
		if err != nil {
			t.Fatalf("day %d: RecordActivity() error = %v", day, err)
		}
		if res.Streak.CurrentStreak != day {
			t.Errorf("day %d: streak = %d, want %d", day, res.Streak.CurrentStreak, day)
		}
		f.clock.AddDays(1)
	}

	p := f.progress(u)
	if p.CurrentStreak != 3 || p.LongestStreak != 3 {
		t.Errorf("streak = %d/%d, want 3/3", p.CurrentStreak, p.LongestStreak)
	}
	if p.TotalXP != 15 {
		t.Errorf("total_xp = %d, want 15", p.TotalXP)
	}
	f.assertConserved(u)
}

func TestLoginTwiceSameDay(t *testing.T) {
	f := newFixture(t)
	u := f.user("Ken Thompson", models.RoleStudent)

	if _, err := f.engine.RecordActivity(f.ctx, u, gamification.ReasonLogin, nil); err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}
	res, err := f.engine.RecordActivity(f.ctx, u, gamification.ReasonLogin, nil)
	if err != nil {
		t.Fatalf("second RecordActivity() error = %v", err)
	}

	if res.XPAwarded != 0 {
		t.Errorf("second login XPAwarded = %d, want 0", res.XPAwarded)
	}
	if res.Streak.Transition != models.StreakNoop || res.Streak.CurrentStreak != 1 {
		t.Errorf("second login streak = %+v, want noop at 1", res.Streak)
	}
}

func TestStreakResetsAfterGap(t *testing.T) {
	f := newFixture(t)
	u := f.user("Donald Knuth", models.RoleStudent)

	if _, err := f.engine.RecordActivity(f.ctx, u, gamification.ReasonLogin, nil); err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}
	f.clock.AddDays(4)
	res, err := f.engine.RecordActivity(f.ctx, u, gamification.ReasonLogin, nil)
	if err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}

	if res.Streak.Transition != models.StreakReset || res.Streak.CurrentStreak != 1 {
		t.Errorf("streak after gap = %+v, want reset to 1", res.Streak)
	}
	if n := f.count(u, gamification.ReasonStreakBonus); n != 0 {
		t.Errorf("STREAK_BONUS rows = %d, want 0", n)
	}
}

func TestStreakMilestonePaysOnce(t *testing.T) {
	f := newFixture(t)
	u := f.user("Margaret Hamilton", models.RoleStudent)

	var last *models.ActivityResult
	for day := 1; day <= 7; day++ {
		res, err := f.engine.RecordActivity(f.ctx, u, gamification.ReasonLogin, nil)
		if err != nil {
			t.Fatalf("day %d: RecordActivity() error = %v", day, err)
		}
		last = res
		f.clock.AddDays(1)
	}

	if last.Streak.Milestone != 7 || last.Streak.BonusXP != 50 {
		t.Errorf("day 7 streak = %+v, want milestone 7 with 50 bonus", last.Streak)
	}
	if len(last.BadgesUnlocked) != 1 || last.BadgesUnlocked[0].Key != string(gamification.BadgeStreak7) {
		t.Errorf("day 7 badges = %+v, want streak_7", last.BadgesUnlocked)
	}
	if n := f.count(u, gamification.ReasonStreakBonus); n != 1 {
		t.Errorf("STREAK_BONUS rows = %d, want 1", n)
	}

	p := f.progress(u)
	if p.TotalXP != 7*5+50 {
		t.Errorf("total_xp = %d, want %d", p.TotalXP, 7*5+50)
	}
	f.assertConserved(u)
}

// ── Badges ──────────────────────────────────────────────

func TestCheckAndAwardIsUnique(t *testing.T) {
	f := newFixture(t)
	u := f.user("Frances Allen", models.RoleStudent)

	var results []bool
	for i := 0; i < 2; i++ {
		err := database.WithTx(f.ctx, f.db, func(tx *sqlx.Tx) error {
			gt := f.gam.Begin(f.ctx, tx)
			_, newly, err := gt.CheckAndAward(u, gamification.BadgeQuiz1)
			results = append(results, newly)
			return err
		})
		if err != nil {
			t.Fatalf("CheckAndAward() error = %v", err)
		}
	}

	if !results[0] || results[1] {
		t.Errorf("newly = %v, want [true false]", results)
	}
	snap, err := f.engine.Snapshot(f.ctx, u)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Badges) != 1 {
		t.Errorf("badges = %d, want 1", len(snap.Badges))
	}
	if snap.TotalXP != 0 {
		t.Errorf("total_xp = %d, want 0", snap.TotalXP)
	}
	f.assertConserved(u)
}

func TestCheckAndAwardUnknownKey(t *testing.T) {
	f := newFixture(t)
	u := f.user("John Backus", models.RoleStudent)

	err := database.WithTx(f.ctx, f.db, func(tx *sqlx.Tx) error {
		_, _, err := f.gam.Begin(f.ctx, tx).CheckAndAward(u, "not_a_badge")
		return err
	})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

// ── Lessons & Courses ───────────────────────────────────

func TestCompletingAllLessonsCompletesCourse(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	courseID, lessons := f.course(tutor, 5)
	f.enroll(student, courseID)

	var last *models.LessonCompletion
	for i, id := range lessons {
		last = f.complete(student, id)
		if i < len(lessons)-1 && last.CourseCompleted {
			t.Fatalf("course completed after %d lessons", i+1)
		}
	}

	if !last.CourseCompleted || last.EnrollmentProgress != 100 {
		t.Errorf("last completion = %+v, want course completed at 100", last)
	}
	cp, err := f.engine.CourseProgress(f.ctx, student, courseID)
	if err != nil {
		t.Fatalf("CourseProgress() error = %v", err)
	}
	if cp.Enrollment.Status != models.EnrollmentCompleted || cp.Enrollment.Progress != 100 {
		t.Errorf("enrollment = %+v, want COMPLETED at 100", cp.Enrollment)
	}
	if cp.Enrollment.CompletedAt == nil {
		t.Error("CompletedAt is nil")
	}
	if n := f.count(student, gamification.ReasonCourseComplete); n != 1 {
		t.Errorf("COURSE_COMPLETE rows = %d, want 1", n)
	}

	want := int64(5*10 + 50)
	if p := f.progress(student); p.TotalXP != want {
		t.Errorf("total_xp = %d, want %d", p.TotalXP, want)
	}
	if last.XPAwarded != 10+50 {
		t.Errorf("last xp_awarded = %d, want %d", last.XPAwarded, 10+50)
	}
	var graduate *models.Badge
	for i, b := range last.BadgesUnlocked {
		if b.Key == string(gamification.BadgeCourse1) {
			graduate = &last.BadgesUnlocked[i]
		}
	}
	if graduate == nil {
		t.Fatalf("badges = %+v, want course_1", last.BadgesUnlocked)
	}
	if graduate.XPReward != 25 {
		t.Errorf("course_1 xp_reward = %d, want 25", graduate.XPReward)
	}
	f.assertConserved(student)
}

func TestLessonCompletionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	courseID, lessons := f.course(tutor, 3)
	f.enroll(student, courseID)

	first := f.complete(student, lessons[0])
	second := f.complete(student, lessons[0])

	if first.AlreadyCompleted || first.XPAwarded != 10 {
		t.Errorf("first = %+v, want new completion with 10 xp", first)
	}
	if !second.AlreadyCompleted || second.XPAwarded != 0 {
		t.Errorf("second = %+v, want already completed with 0 xp", second)
	}
	if second.EnrollmentProgress != first.EnrollmentProgress {
		t.Errorf("progress changed on repeat: %d -> %d", first.EnrollmentProgress, second.EnrollmentProgress)
	}
	if first.EnrollmentProgress != 33 {
		t.Errorf("progress after 1 of 3 = %d, want 33", first.EnrollmentProgress)
	}
}

func TestConcurrentLessonCompletionAwardsOnce(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	courseID, lessons := f.course(tutor, 2)
	f.enroll(student, courseID)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	fresh := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.MarkLessonComplete(f.ctx, student, lessons[0])
			if err != nil {
				errs <- err
				return
			}
			fresh <- !res.AlreadyCompleted
		}()
	}
	wg.Wait()
	close(errs)
	close(fresh)

	for err := range errs {
		t.Errorf("MarkLessonComplete() error = %v", err)
	}
	n := 0
	for ok := range fresh {
		if ok {
			n++
		}
	}
	if n != 1 {
		t.Errorf("fresh completions = %d, want 1", n)
	}
	if c := f.count(student, gamification.ReasonLessonComplete); c != 1 {
		t.Errorf("LESSON_COMPLETE rows = %d, want 1", c)
	}
	f.assertConserved(student)
}

func TestRunRerunsOnceAfterUniqueViolation(t *testing.T) {
	f := newFixture(t)
	u := f.user("Barbara Liskov", models.RoleStudent)
	lesson := int64(7)

	// The racing request that committed first.
	if _, err := f.engine.Award(f.ctx, u, 10, gamification.ReasonLessonComplete, &lesson); err != nil {
		t.Fatalf("Award() error = %v", err)
	}

	attempts := 0
	var res *models.AwardResult
	gt, err := f.engine.run(f.ctx, "complete lesson", func(gt *gamification.Tx) error {
		attempts++
		if attempts == 1 {
			// The losing insert, which collides with the committed row.
			q := gt.Ext()
			_, err := q.ExecContext(gt.Context(), q.Rebind(
				`INSERT INTO xp_activities (user_id, amount, reason, source_id) VALUES (?, ?, ?, ?)`),
				u, 10, string(gamification.ReasonLessonComplete), lesson)
			if err != nil {
				return fmt.Errorf("insert xp activity: %w", err)
			}
			return nil
		}
		var err error
		res, err = gt.Award(u, 10, gamification.ReasonLessonComplete, &lesson)
		return err
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if res == nil || res.XPAwarded != 0 || res.NewXP != 10 {
		t.Errorf("rerun award = %+v, want no-op at 10", res)
	}
	if out := gt.Outcome(u); out.XPAwarded != 0 || out.TotalXP != 10 {
		t.Errorf("outcome = %+v, want 0 awarded at 10", out)
	}
	if n := f.count(u, gamification.ReasonLessonComplete); n != 1 {
		t.Errorf("LESSON_COMPLETE rows = %d, want 1", n)
	}
	f.assertConserved(u)
}

func TestRunDoesNotRerunOtherErrors(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")

	attempts := 0
	_, err := f.engine.run(f.ctx, "op", func(*gamification.Tx) error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("run() error = %v, want boom", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRunGivesUpAfterSecondUniqueViolation(t *testing.T) {
	f := newFixture(t)
	f.user("Niklaus Wirth", models.RoleStudent)

	attempts := 0
	_, err := f.engine.run(f.ctx, "op", func(gt *gamification.Tx) error {
		attempts++
		q := gt.Ext()
		_, err := q.ExecContext(gt.Context(), q.Rebind(
			`INSERT INTO users (email, name, password, role) VALUES (?, ?, ?, ?)`),
			"Niklaus Wirth@example.com", "Niklaus Wirth", "x", models.RoleStudent)
		return err
	})
	if !database.IsUniqueViolation(err) {
		t.Errorf("run() error = %v, want unique violation", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestMarkLessonCompleteErrors(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	_, lessons := f.course(tutor, 1)

	if _, err := f.engine.MarkLessonComplete(f.ctx, student, 9999); !errors.Is(err, models.ErrLessonNotFound) {
		t.Errorf("unknown lesson: error = %v, want ErrLessonNotFound", err)
	}
	if _, err := f.engine.MarkLessonComplete(f.ctx, student, lessons[0]); !errors.Is(err, models.ErrNotEnrolled) {
		t.Errorf("not enrolled: error = %v, want ErrNotEnrolled", err)
	}
	if _, err := f.engine.MarkLessonComplete(f.ctx, 9999, lessons[0]); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("unknown user: error = %v, want ErrUserNotFound", err)
	}
}

func TestSectionGating(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	courseID, lessons := f.course(tutor, 5, 1)
	f.enroll(student, courseID)

	for _, id := range lessons[:3] {
		f.complete(student, id)
	}
	secs, err := f.engine.Sections(f.ctx, student, courseID)
	if err != nil {
		t.Fatalf("Sections() error = %v", err)
	}
	if len(secs) != 2 {
		t.Fatalf("sections = %d, want 2", len(secs))
	}
	if !secs[0].Unlocked || secs[1].Unlocked {
		t.Errorf("at 60%%: unlocked = [%v %v], want [true false]", secs[0].Unlocked, secs[1].Unlocked)
	}

	f.complete(student, lessons[3])
	secs, err = f.engine.Sections(f.ctx, student, courseID)
	if err != nil {
		t.Fatalf("Sections() error = %v", err)
	}
	if secs[0].Percent != 80 || !secs[1].Unlocked {
		t.Errorf("at 80%%: first = %d%%, second unlocked = %v", secs[0].Percent, secs[1].Unlocked)
	}
}

// ── Quizzes ─────────────────────────────────────────────

func TestQuizBestScoreAndSinglePass(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	courseID, _ := f.course(tutor, 1)
	quizID := f.quiz(tutor, courseID, 10, false)

	var subs []*models.QuizSubmission
	for _, correct := range []int{4, 9, 6} {
		sub, err := f.engine.SubmitQuizAttempt(f.ctx, student, quizID, f.answers(quizID, correct), 30)
		if err != nil {
			t.Fatalf("SubmitQuizAttempt(%d correct) error = %v", correct, err)
		}
		subs = append(subs, sub)
	}

	if subs[0].Score != 40 || subs[0].Passed {
		t.Errorf("attempt 1 = %d passed=%v, want 40 failed", subs[0].Score, subs[0].Passed)
	}
	if !subs[1].FirstPass || subs[1].XPAwarded != 20 {
		t.Errorf("attempt 2 = %+v, want first pass with 20 xp", subs[1])
	}
	if subs[2].BestScore != 90 {
		t.Errorf("best score = %d, want 90", subs[2].BestScore)
	}
	if n := f.count(student, gamification.ReasonQuizPass); n != 1 {
		t.Errorf("QUIZ_PASS rows = %d, want 1", n)
	}

	hist, err := f.engine.QuizAttempts(f.ctx, student, quizID)
	if err != nil {
		t.Fatalf("QuizAttempts() error = %v", err)
	}
	if len(hist.Attempts) != 3 || hist.BestScore != 90 || !hist.Passed {
		t.Errorf("history = %d attempts best %d passed %v", len(hist.Attempts), hist.BestScore, hist.Passed)
	}
	f.assertConserved(student)
}

func TestQuizPassesAtThreshold(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	courseID, _ := f.course(tutor, 1)
	quizID := f.quiz(tutor, courseID, 10, false)

	sub, err := f.engine.SubmitQuizAttempt(f.ctx, student, quizID, f.answers(quizID, 8), 0)
	if err != nil {
		t.Fatalf("SubmitQuizAttempt() error = %v", err)
	}
	if sub.Score != 80 || !sub.Passed || sub.CorrectAnswers != 8 || sub.TotalQuestions != 10 {
		t.Errorf("submission = %d (%d/%d) passed=%v, want 80 (8/10) passed",
			sub.Score, sub.CorrectAnswers, sub.TotalQuestions, sub.Passed)
	}
}

func TestEmptyQuizRejected(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	courseID, _ := f.course(tutor, 1)

	qz := &models.Quiz{CourseID: courseID, Title: "Empty", PassingScore: 70, CreatedAt: f.clock.Now()}
	if err := f.quizzes.Store().CreateQuiz(f.ctx, f.db, qz, nil); err != nil {
		t.Fatalf("CreateQuiz() error = %v", err)
	}

	if _, err := f.engine.SubmitQuizAttempt(f.ctx, student, qz.ID, nil, 0); !errors.Is(err, models.ErrEmptyQuiz) {
		t.Errorf("error = %v, want ErrEmptyQuiz", err)
	}
	if _, err := f.engine.SubmitQuizAttempt(f.ctx, student, 9999, nil, 0); !errors.Is(err, models.ErrQuizNotFound) {
		t.Errorf("unknown quiz: error = %v, want ErrQuizNotFound", err)
	}
}

func TestRequiredQuizGatesCompletion(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	courseID, lessons := f.course(tutor, 2)
	quizID := f.quiz(tutor, courseID, 4, true)
	f.enroll(student, courseID)

	for _, id := range lessons {
		if res := f.complete(student, id); res.CourseCompleted {
			t.Fatal("course completed before the required quiz was passed")
		}
	}
	cp, err := f.engine.CourseProgress(f.ctx, student, courseID)
	if err != nil {
		t.Fatalf("CourseProgress() error = %v", err)
	}
	if cp.Enrollment.Status != models.EnrollmentActive || cp.Enrollment.Progress >= 100 {
		t.Errorf("before quiz: enrollment = %+v, want ACTIVE below 100", cp.Enrollment)
	}

	sub, err := f.engine.SubmitQuizAttempt(f.ctx, student, quizID, f.answers(quizID, 4), 12)
	if err != nil {
		t.Fatalf("SubmitQuizAttempt() error = %v", err)
	}
	if !sub.CourseCompleted {
		t.Error("passing the required quiz did not complete the course")
	}
	cp, err = f.engine.CourseProgress(f.ctx, student, courseID)
	if err != nil {
		t.Fatalf("CourseProgress() error = %v", err)
	}
	if cp.Enrollment.Status != models.EnrollmentCompleted || cp.Enrollment.Progress != 100 {
		t.Errorf("after quiz: enrollment = %+v, want COMPLETED at 100", cp.Enrollment)
	}
	f.assertConserved(student)
}

func TestQuizViewHidesAnswers(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	courseID, _ := f.course(tutor, 1)
	quizID := f.quiz(tutor, courseID, 3, false)

	view, err := f.engine.Quiz(f.ctx, quizID)
	if err != nil {
		t.Fatalf("Quiz() error = %v", err)
	}
	if len(view.Questions) != 3 {
		t.Errorf("questions = %d, want 3", len(view.Questions))
	}
}

// ── Reviews ─────────────────────────────────────────────

func TestSubmitReview(t *testing.T) {
	f := newFixture(t)
	tutor := f.user("Tess Tutor", models.RoleTutor)
	student := f.user("Sam Student", models.RoleStudent)
	outsider := f.user("Olly Outsider", models.RoleStudent)
	courseID, _ := f.course(tutor, 1)
	f.enroll(student, courseID)

	first, err := f.engine.SubmitReview(f.ctx, student, courseID, 5, " Great course ")
	if err != nil {
		t.Fatalf("SubmitReview() error = %v", err)
	}
	if first.AlreadyReviewed || first.Review.Body != "Great course" {
		t.Errorf("first review = %+v", first)
	}
	if len(first.BadgesUnlocked) != 1 || first.BadgesUnlocked[0].Key != string(gamification.BadgeReview1) {
		t.Errorf("badges = %+v, want review_1", first.BadgesUnlocked)
	}

	second, err := f.engine.SubmitReview(f.ctx, student, courseID, 1, "changed my mind")
	if err != nil {
		t.Fatalf("second SubmitReview() error = %v", err)
	}
	if !second.AlreadyReviewed || second.Review.Rating != 5 || second.XPAwarded != 0 {
		t.Errorf("second review = %+v, want unchanged no-op", second)
	}

	if _, err := f.engine.SubmitReview(f.ctx, outsider, courseID, 4, ""); !errors.Is(err, models.ErrNotEnrolled) {
		t.Errorf("outsider: error = %v, want ErrNotEnrolled", err)
	}
	if _, err := f.engine.SubmitReview(f.ctx, student, courseID, 6, ""); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("rating 6: error = %v, want ErrInvalidInput", err)
	}
	f.assertConserved(student)
}

// ── Leaderboard ─────────────────────────────────────────

func TestLeaderboardOrdersByXP(t *testing.T) {
	f := newFixture(t)
	a := f.user("Alice Able", models.RoleStudent)
	b := f.user("Bob Baker", models.RoleStudent)
	f.user("Carl Idle", models.RoleStudent)

	if _, err := f.engine.Award(f.ctx, a, 30, gamification.ReasonHelpPeer, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Award(f.ctx, b, 120, gamification.ReasonHelpPeer, nil); err != nil {
		t.Fatal(err)
	}

	top, err := f.board.Top(f.ctx, 10)
	if err != nil {
		t.Fatalf("Top() error = %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("entries = %d, want 2", len(top))
	}
	if top[0].UserID != b || top[0].Rank != 1 || top[0].DisplayName != "Bob B." || top[0].Level != 2 {
		t.Errorf("top[0] = %+v", top[0])
	}
	if top[1].UserID != a || top[1].Rank != 2 {
		t.Errorf("top[1] = %+v", top[1])
	}
}
