package gamification

import "testing"

func TestLevel(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{10000, 11},
		{-5, 1},
	}

	for _, tt := range tests {
		if got := Level(tt.xp); got != tt.want {
			t.Errorf("Level(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestXPForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{0, 0},
		{1, 0},
		{2, 100},
		{3, 400},
		{5, 1600},
		{11, 10000},
	}

	for _, tt := range tests {
		if got := XPForLevel(tt.level); got != tt.want {
			t.Errorf("XPForLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestLevelConsistency(t *testing.T) {
	check := func(xp int64) {
		l := Level(xp)
		if XPForLevel(l) > xp || xp >= XPForLevel(l+1) {
			t.Fatalf("xp %d: level %d spans [%d, %d)", xp, l, XPForLevel(l), XPForLevel(l+1))
		}
	}
	for xp := int64(0); xp <= 50000; xp++ {
		check(xp)
	}
	for _, xp := range []int64{1 << 40, 1<<62 - 1, 999999999999} {
		check(xp)
	}
}

func TestProgressToNextLevel(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 0},
		{50, 50},
		{99, 99},
		{100, 0},
		{250, 50},
		{399, 99},
		{400, 0},
	}

	for _, tt := range tests {
		if got := ProgressToNextLevel(tt.xp); got != tt.want {
			t.Errorf("ProgressToNextLevel(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}
