package gamification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/models"
)

type Service struct {
	store *Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store *Store, log *logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, log: log.With("component", "gamification"), now: now}
}

func (s *Service) Store() *Store {
	return s.store
}

// SeedBadges writes the static badge catalog. Existing rows are left alone.
func (s *Service) SeedBadges(ctx context.Context) error {
	for _, d := range badgeDefs {
		if err := s.store.UpsertBadge(ctx, s.store.db, d); err != nil {
			return err
		}
	}
	s.log.Info("badge catalog seeded", "count", len(badgeDefs))
	return nil
}

// Snapshot is the read-only progress view for a user.
func (s *Service) Snapshot(ctx context.Context, q sqlx.ExtContext, userID int64) (*models.ProgressSnapshot, error) {
	p, err := s.store.GetProgress(ctx, q, userID, false)
	if errors.Is(err, sql.ErrNoRows) {
		exists, err := s.store.UserExists(ctx, q, userID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, models.ErrUserNotFound
		}
		p = &models.UserProgress{UserID: userID, CurrentLevel: 1}
	} else if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	badges, err := s.store.ListUserBadges(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	level := Level(p.TotalXP)
	return &models.ProgressSnapshot{
		UserID:              userID,
		TotalXP:             p.TotalXP,
		Level:               level,
		XPForCurrentLevel:   XPForLevel(level),
		XPForNextLevel:      XPForLevel(level + 1),
		ProgressToNextLevel: ProgressToNextLevel(p.TotalXP),
		CurrentStreak:       p.CurrentStreak,
		LongestStreak:       p.LongestStreak,
		LastActivityDate:    p.LastActivityDate,
		Badges:              badges,
	}, nil
}

// Begin binds the service to one transaction.
func (s *Service) Begin(ctx context.Context, q sqlx.ExtContext) *Tx {
	return &Tx{ctx: ctx, q: q, svc: s, initial: map[int64]int64{}, totals: map[int64]int64{}}
}

// Tx runs ledger, streak and badge operations inside one database
// transaction and records what they changed. Nothing it records is visible
// to others until the caller commits.
type Tx struct {
	ctx context.Context
	q   sqlx.ExtContext
	svc *Service

	Awards   []models.XPActivity
	Unlocked []models.Badge

	initial map[int64]int64
	totals  map[int64]int64
}

func (t *Tx) Context() context.Context { return t.ctx }
func (t *Tx) Ext() sqlx.ExtContext     { return t.q }
func (t *Tx) Now() time.Time           { return t.svc.now() }

// Totals returns the last known total XP of every user this Tx touched.
func (t *Tx) Totals() map[int64]int64 {
	return t.totals
}

// Progress returns the user's progress row, creating it on first use.
// The row is locked for the rest of the transaction.
func (t *Tx) Progress(userID int64) (*models.UserProgress, error) {
	p, err := t.progress(userID)
	if err != nil {
		return nil, err
	}
	if _, seen := t.initial[userID]; !seen {
		t.initial[userID] = p.TotalXP
	}
	return p, nil
}

func (t *Tx) progress(userID int64) (*models.UserProgress, error) {
	st := t.svc.store
	p, err := st.GetProgress(t.ctx, t.q, userID, true)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	exists, err := st.UserExists(t.ctx, t.q, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", models.ErrUserNotFound, userID)
	}
	if err := st.CreateProgress(t.ctx, t.q, userID, t.Now()); err != nil {
		return nil, err
	}
	p, err = st.GetProgress(t.ctx, t.q, userID, true)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// Award appends an XP activity and updates the user's totals. A repeat of a
// source-scoped award is a no-op that reports the existing totals.
func (t *Tx) Award(userID int64, amount int, reason Reason, sourceID *int64) (*models.AwardResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidAmount, amount)
	}
	source, err := normalizeSource(reason, sourceID)
	if err != nil {
		return nil, err
	}

	p, err := t.Progress(userID)
	if err != nil {
		return nil, err
	}

	res := &models.AwardResult{
		PreviousXP:    p.TotalXP,
		NewXP:         p.TotalXP,
		PreviousLevel: Level(p.TotalXP),
		NewLevel:      Level(p.TotalXP),
	}

	now := t.Now()
	activity := models.XPActivity{
		UserID:    userID,
		Amount:    amount,
		Reason:    string(reason),
		SourceID:  source,
		CreatedAt: now,
	}
	inserted, err := t.svc.store.InsertXPActivity(t.ctx, t.q, &activity)
	if err != nil {
		return nil, err
	}
	if !inserted {
		t.totals[userID] = p.TotalXP
		return res, nil
	}

	res.NewXP = p.TotalXP + int64(amount)
	res.XPAwarded = amount
	res.NewLevel = Level(res.NewXP)
	res.LeveledUp = res.NewLevel > res.PreviousLevel

	if err := t.svc.store.AddXP(t.ctx, t.q, userID, amount, res.NewLevel, now); err != nil {
		return nil, err
	}

	t.Awards = append(t.Awards, activity)
	t.totals[userID] = res.NewXP
	t.svc.log.Debug("xp awarded", "user_id", userID, "reason", reason, "amount", amount, "total_xp", res.NewXP)
	if res.LeveledUp {
		t.svc.log.Info("level up", "user_id", userID, "level", res.NewLevel)
	}
	return res, nil
}

// UpdateStreak records a qualifying activity on today. A continue onto a
// milestone pays STREAK_BONUS once per milestone and unlocks its badge.
func (t *Tx) UpdateStreak(userID int64, today models.Date) (*models.StreakResult, error) {
	p, err := t.Progress(userID)
	if err != nil {
		return nil, err
	}

	u := NextStreak(StreakState{Current: p.CurrentStreak, Longest: p.LongestStreak, Last: p.LastActivityDate}, today)
	res := &models.StreakResult{
		Transition:    u.Transition,
		CurrentStreak: u.Current,
		LongestStreak: u.Longest,
	}
	if u.Transition == models.StreakNoop {
		return res, nil
	}

	if err := t.svc.store.UpdateStreak(t.ctx, t.q, userID, u.Current, u.Longest, today, t.Now()); err != nil {
		return nil, err
	}

	if u.Bonus > 0 {
		milestone := int64(u.Milestone)
		award, err := t.Award(userID, u.Bonus, ReasonStreakBonus, &milestone)
		if err != nil {
			return nil, fmt.Errorf("streak bonus: %w", err)
		}
		res.Milestone = u.Milestone
		res.BonusXP = award.XPAwarded

		if key, ok := StreakBadge(u.Milestone); ok {
			if _, _, err := t.CheckAndAward(userID, key); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// CheckAndAward unlocks key for the user. Unlocking twice returns the
// existing record with newly set to false.
func (t *Tx) CheckAndAward(userID int64, key BadgeKey) (ub *models.UserBadge, newly bool, err error) {
	def, err := LookupBadge(key)
	if err != nil {
		return nil, false, err
	}
	badge, err := t.badge(def)
	if err != nil {
		return nil, false, err
	}

	st := t.svc.store
	ub = &models.UserBadge{UserID: userID, BadgeID: badge.ID, UnlockedAt: t.Now()}
	inserted, err := st.InsertUserBadge(t.ctx, t.q, ub)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		existing, err := st.GetUserBadge(t.ctx, t.q, userID, badge.ID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	t.Unlocked = append(t.Unlocked, *badge)
	t.svc.log.Info("badge unlocked", "user_id", userID, "badge", badge.Key)
	return ub, true, nil
}

// badge returns the catalog row for def, creating it if startup seeding
// has not run against this database.
func (t *Tx) badge(def BadgeDef) (*models.Badge, error) {
	st := t.svc.store
	b, err := st.GetBadgeByKey(t.ctx, t.q, def.Key)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get badge: %w", err)
	}
	if err := st.UpsertBadge(t.ctx, t.q, def); err != nil {
		return nil, err
	}
	b, err = st.GetBadgeByKey(t.ctx, t.q, def.Key)
	if err != nil {
		return nil, fmt.Errorf("get badge: %w", err)
	}
	return b, nil
}

// EvaluateBadges unlocks every badge the user's counters now satisfy and
// returns the ones unlocked by this call.
func (t *Tx) EvaluateBadges(userID int64) ([]models.Badge, error) {
	c, err := t.svc.store.Counters(t.ctx, t.q, userID)
	if err != nil {
		return nil, err
	}

	var unlocked []models.Badge
	for _, key := range QualifiedBadges(c) {
		before := len(t.Unlocked)
		if _, newly, err := t.CheckAndAward(userID, key); err != nil {
			return nil, err
		} else if newly {
			unlocked = append(unlocked, t.Unlocked[before])
		}
	}
	return unlocked, nil
}

// Outcome summarizes the changes recorded for userID since Tx began.
func (t *Tx) Outcome(userID int64) models.Outcome {
	previousXP := t.initial[userID]
	total, ok := t.totals[userID]
	if !ok {
		total = previousXP
	}
	out := models.Outcome{
		XPAwarded:      int(total - previousXP),
		TotalXP:        total,
		Level:          Level(total),
		LeveledUp:      Level(total) > Level(previousXP),
		BadgesUnlocked: []models.Badge{},
	}
	out.BadgesUnlocked = append(out.BadgesUnlocked, t.Unlocked...)
	return out
}
