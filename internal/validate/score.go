package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"techlore/internal/experience"
)

// Quality score weights. The score starts at a perfect 10.0 and is
// adjusted by content heuristics, then clamped to [0, 10].
const (
	scoreStart            = 10.0
	shortContentPenalty   = 2.0 // content under 100 characters
	tinyContentPenalty    = 2.0 // additional, content under 50 characters
	penaltyWordDeduction  = 1.0 // per penalty word present
	signalWordBonus       = 0.5 // per signal word present
	decimalNumberBonus    = 0.5 // content cites a decimal measurement
	percentageBonus       = 0.5 // content cites a percentage
	versionedReleaseBonus = 1.0 // technology version is a dotted release
)

// penaltyWords drag the score down when they appear in content; they
// correlate strongly with placeholder submissions.
var penaltyWords = []string{"test", "example", "placeholder", "unknown"}

// signalWords correlate with substantive engineering write-ups.
var signalWords = []string{"performance", "improvement", "optimization"}

var (
	decimalNumberPattern = regexp.MustCompile(`\d+\.\d+`)
	percentagePattern    = regexp.MustCompile(`\d+(\.\d+)?\s?%`)
)

// scoreQuality computes the deterministic 0-10 quality score for a record.
func (v *Validator) scoreQuality(rec *experience.Record) float64 {
	content := rec.Content()
	lower := strings.ToLower(content)

	score := scoreStart

	length := utf8.RuneCountInString(content)
	if length < 100 {
		score -= shortContentPenalty
	}
	if length < 50 {
		score -= tinyContentPenalty
	}

	for _, word := range penaltyWords {
		if strings.Contains(lower, word) {
			score -= penaltyWordDeduction
		}
	}
	for _, word := range signalWords {
		if strings.Contains(lower, word) {
			score += signalWordBonus
		}
	}

	if decimalNumberPattern.MatchString(content) {
		score += decimalNumberBonus
	}
	if percentagePattern.MatchString(content) {
		score += percentageBonus
	}
	if decimalNumberPattern.MatchString(rec.Technology.Version) {
		score += versionedReleaseBonus
	}

	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
