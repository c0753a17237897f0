package services

// LevelThresholds is the process-wide XP table: level n is reached once
// cumulative XP passes the n-th entry. Index 0 keeps every account at
// level 1 minimum.
var LevelThresholds = []int64{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000, 15000}

// Level returns the level for a cumulative XP total: the count of
// thresholds <= xp. Total over all xp >= 0, never below 1.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	level := 0
	for _, t := range LevelThresholds {
		if xp >= t {
			level++
		} else {
			break
		}
	}
	if level < 1 {
		level = 1
	}
	return level
}

// TargetXP returns the cumulative XP needed for the next level after the
// given one. At the top of the table the last threshold is returned, so a
// maxed account shows a full bar.
func TargetXP(level int) int64 {
	if level < 1 {
		level = 1
	}
	if level >= len(LevelThresholds) {
		return LevelThresholds[len(LevelThresholds)-1]
	}
	return LevelThresholds[level]
}
