package gamification

import (
	"errors"
	"testing"

	"github.com/tutorhub/backend/internal/models"
)

func TestParseReason(t *testing.T) {
	tests := []struct {
		in      string
		want    Reason
		wantErr bool
	}{
		{"LOGIN", ReasonLogin, false},
		{"lesson_complete", ReasonLessonComplete, false},
		{" help_peer ", ReasonHelpPeer, false},
		{"BADGE_REWARD", "", true},
		{"FREE_XP", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseReason(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseReason(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, models.ErrInvalidReason) {
			t.Errorf("ParseReason(%q) error = %v, want ErrInvalidReason", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSource(t *testing.T) {
	id := int64(42)

	if _, err := normalizeSource(ReasonQuizPass, nil); !errors.Is(err, models.ErrSourceRequired) {
		t.Errorf("QUIZ_PASS without source: error = %v, want ErrSourceRequired", err)
	}
	if got, _ := normalizeSource(ReasonQuizPass, &id); got == nil || *got != 42 {
		t.Errorf("QUIZ_PASS source = %v, want 42", got)
	}
	if got, _ := normalizeSource(ReasonHelpPeer, &id); got != nil {
		t.Errorf("HELP_PEER source = %v, want nil", *got)
	}
	if got, err := normalizeSource(ReasonGroupJoin, nil); err != nil || got != nil {
		t.Errorf("GROUP_JOIN without source = %v, %v; want nil, nil", got, err)
	}
	if got, _ := normalizeSource(ReasonGroupJoin, &id); got == nil || *got != 42 {
		t.Errorf("GROUP_JOIN source = %v, want 42", got)
	}
}

func TestDefaultRewards(t *testing.T) {
	r := DefaultRewards()
	if got, _ := r.For(ReasonLessonComplete); got != 10 {
		t.Errorf("LESSON_COMPLETE reward = %d, want 10", got)
	}
	if got, _ := r.For(ReasonCourseComplete); got != 50 {
		t.Errorf("COURSE_COMPLETE reward = %d, want 50", got)
	}
	if _, ok := r.For(ReasonStreakBonus); ok {
		t.Error("STREAK_BONUS should not have a fixed reward")
	}
}
