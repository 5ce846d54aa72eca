// Package leaderboard maintains the bounded top-score list cached on each challenge.
package leaderboard

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Dosada05/club-challenges/models"
)

// MaxEntries is the size of a challenge leaderboard.
const MaxEntries = 5

// ErrInvalidScore is returned for scores that are not finite decimal numbers.
var ErrInvalidScore = errors.New("score must be a finite decimal number")

// decimalScore отсекает hex-float и "_", которые ParseFloat тоже принимает.
var decimalScore = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseScore parses a submitted score. Scores are stored as text but ranked numerically.
func ParseScore(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if !decimalScore.MatchString(s) {
		return 0, ErrInvalidScore
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidScore
	}
	return v, nil
}

// ranked pairs an entry with its parsed score so the sort parses each score once.
type ranked struct {
	entry models.TopScoreEntry
	value float64
	valid bool
}

func rank(entries []models.TopScoreEntry) []ranked {
	out := make([]ranked, len(entries))
	for i, e := range entries {
		v, err := ParseScore(e.Score)
		out[i] = ranked{entry: e, value: v, valid: err == nil}
	}
	return out
}

// less reports whether a ranks strictly ahead of b. Unparseable legacy scores sink to
// the bottom; equal scores are ordered by earlier achievedAt.
func less(a, b ranked, higherIsBetter bool) bool {
	if a.valid != b.valid {
		return a.valid
	}
	if a.valid && a.value != b.value {
		if higherIsBetter {
			return a.value > b.value
		}
		return a.value < b.value
	}
	return a.entry.AchievedAt.Before(b.entry.AchievedAt)
}

func sortAndTruncate(items []ranked, higherIsBetter bool) models.TopScores {
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j], higherIsBetter)
	})
	if len(items) > MaxEntries {
		items = items[:MaxEntries]
	}
	out := make(models.TopScores, len(items))
	for i, it := range items {
		out[i] = it.entry
	}
	return out
}

// Merge inserts candidate into current and returns the new bounded, ordered list.
// current is not modified.
func Merge(current models.TopScores, candidate models.TopScoreEntry, higherIsBetter bool) models.TopScores {
	all := make([]models.TopScoreEntry, 0, len(current)+1)
	all = append(all, current...)
	all = append(all, candidate)
	return sortAndTruncate(rank(all), higherIsBetter)
}

// Rebuild computes a leaderboard from scratch out of every candidate entry.
func Rebuild(candidates []models.TopScoreEntry, higherIsBetter bool) models.TopScores {
	return sortAndTruncate(rank(candidates), higherIsBetter)
}

// Changed reports whether next differs from prev in order or membership.
func Changed(prev, next models.TopScores) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		p, n := prev[i], next[i]
		if p.EntryID != n.EntryID || p.UserID != n.UserID || p.Score != n.Score {
			return true
		}
	}
	return false
}
