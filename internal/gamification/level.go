package gamification

import "math"

const xpPerLevelUnit = 100

// Level returns the level reached with totalXP. Level 1 starts at 0 XP and
// each later level needs quadratically more.
func Level(totalXP int64) int {
	if totalXP < 0 {
		return 1
	}
	return int(isqrt(totalXP/xpPerLevelUnit)) + 1
}

// XPForLevel returns the total XP at which level is first reached.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return n * n * xpPerLevelUnit
}

// ProgressToNextLevel returns the percentage (0-100) of the way from the
// current level's threshold to the next one.
func ProgressToNextLevel(totalXP int64) int {
	level := Level(totalXP)
	floor := XPForLevel(level)
	span := XPForLevel(level+1) - floor
	pct := int((totalXP - floor) * 100 / span)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// isqrt returns floor(sqrt(n)) without float rounding errors for large n.
func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
