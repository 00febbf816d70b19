package validate

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"techlore/internal/experience"
)

// genericContentPattern flags names and text that look like test or
// placeholder data rather than a real technology experience.
var genericContentPattern = regexp.MustCompile(`(?i)(test|temp|placeholder|example|generic|demo|sample|mock|fake|dummy|unknown)`)

// LooksGeneric reports whether the text matches the placeholder-data pattern.
// Maintenance passes use it to purge test records that predate the gate.
func LooksGeneric(text string) bool {
	return genericContentPattern.MatchString(text)
}

// Result is the outcome of validating one candidate record.
// Violations block acceptance; warnings do not.
type Result struct {
	Accepted     bool
	Violations   []string
	Warnings     []string
	QualityScore float64
}

// Validator applies a RuleSet to candidate records. It holds no shared
// mutable state and performs no I/O, so a single instance is safe for
// concurrent use.
type Validator struct {
	rules         RuleSet
	forbiddenTech map[string]struct{}
	forbiddenCat  map[string]struct{}
}

// New builds a validator for the given rules.
func New(rules RuleSet) *Validator {
	v := &Validator{
		rules:         rules,
		forbiddenTech: make(map[string]struct{}, len(rules.ForbiddenTechnologies)),
		forbiddenCat:  make(map[string]struct{}, len(rules.ForbiddenCategories)),
	}
	for _, name := range rules.ForbiddenTechnologies {
		v.forbiddenTech[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range rules.ForbiddenCategories {
		v.forbiddenCat[strings.ToLower(name)] = struct{}{}
	}
	return v
}

// NewDefault builds a validator with the compiled-in rules.
func NewDefault() *Validator {
	return New(DefaultRuleSet())
}

// Rules returns the rule set this validator enforces.
func (v *Validator) Rules() RuleSet {
	return v.rules
}

// MinQualityScore returns the acceptance threshold.
func (v *Validator) MinQualityScore() float64 {
	return v.rules.MinQualityScore
}

// IsForbiddenTechnology reports whether the name is in the forbidden set.
func (v *Validator) IsForbiddenTechnology(name string) bool {
	_, ok := v.forbiddenTech[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// IsForbiddenCategory reports whether the category is in the forbidden set.
func (v *Validator) IsForbiddenCategory(category string) bool {
	_, ok := v.forbiddenCat[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// Validate runs every check against the candidate and accumulates all
// violations rather than short-circuiting, so a submitter sees every
// problem at once. The quality score is computed even for rejected
// records.
func (v *Validator) Validate(rec *experience.Record) Result {
	var res Result

	v.checkRequiredFields(rec, &res)
	v.checkTechnology(rec, &res)
	v.checkCategory(rec, &res)
	v.checkContributor(rec, &res)
	v.checkRatings(rec, &res)
	v.checkContent(rec, &res)

	res.QualityScore = v.scoreQuality(rec)
	res.Accepted = len(res.Violations) == 0 && res.QualityScore >= v.rules.MinQualityScore
	return res
}

func (v *Validator) checkRequiredFields(rec *experience.Record, res *Result) {
	if strings.TrimSpace(rec.Technology.Name) == "" {
		res.Violations = append(res.Violations, "Missing required field: technology")
	}
	if strings.TrimSpace(rec.Category) == "" {
		res.Violations = append(res.Violations, "Missing required field: category")
	}
	if strings.TrimSpace(rec.ContributorID) == "" {
		res.Violations = append(res.Violations, "Missing required field: contributorId")
	}
	if strings.TrimSpace(rec.SourceModel) == "" {
		res.Violations = append(res.Violations, "Missing required field: sourceModel")
	}
	if rec.Timestamp.IsZero() {
		res.Violations = append(res.Violations, "Missing required field: timestamp")
	}
}

func (v *Validator) checkTechnology(rec *experience.Record, res *Result) {
	name := strings.TrimSpace(rec.Technology.Name)
	if name != "" {
		if len(name) < v.rules.MinTechnologyNameLength {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Technology name too short: %q (minimum %d characters)", name, v.rules.MinTechnologyNameLength))
		}
		if v.IsForbiddenTechnology(name) {
			res.Violations = append(res.Violations, fmt.Sprintf("Forbidden technology: %s", name))
		} else if genericContentPattern.MatchString(name) {
			res.Violations = append(res.Violations, fmt.Sprintf("Technology name looks like placeholder data: %s", name))
		}
	}

	version := strings.TrimSpace(rec.Technology.Version)
	switch {
	case version == "":
		res.Violations = append(res.Violations, "Missing technology version")
	case strings.EqualFold(version, "unknown"):
		res.Violations = append(res.Violations, `Technology version must not be "unknown"`)
	}
}

func (v *Validator) checkCategory(rec *experience.Record, res *Result) {
	category := strings.TrimSpace(rec.Category)
	if category == "" {
		return
	}
	if v.IsForbiddenCategory(category) {
		res.Violations = append(res.Violations, fmt.Sprintf("Forbidden category: %s", category))
	} else if genericContentPattern.MatchString(category) {
		res.Violations = append(res.Violations, fmt.Sprintf("Category looks like placeholder data: %s", category))
	}
}

func (v *Validator) checkContributor(rec *experience.Record, res *Result) {
	id := strings.TrimSpace(rec.ContributorID)
	if id == "" {
		return
	}
	if len(id) < v.rules.MinContributorIDLength {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Contributor id too short: %q (minimum %d characters)", id, v.rules.MinContributorIDLength))
	}
}

func (v *Validator) checkRatings(rec *experience.Record, res *Result) {
	for _, rated := range sortedRatingList(rec.Ratings) {
		v.checkRating(rated.aspect, rated.value, res)
		if _, known := experience.ParseAspect(rated.aspect); !known {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Unrecognized rating aspect: %s", rated.aspect))
		}
	}
	for _, entry := range rec.HarmonyEntries {
		v.checkRating("harmony:"+entry.Technology, entry.Rating, res)
	}
}

// checkRating enforces the precision invariant: every rating lies in
// [0, 10] and carries exactly one decimal digit.
func (v *Validator) checkRating(label string, value float64, res *Result) {
	if value < 0 || value > 10 {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Rating %v for aspect %q out of range [0.0, 10.0]", value, label))
		return
	}
	rounded := math.Round(value*10) / 10
	if rounded != value {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Rating %v for aspect %q must have exactly one decimal digit (nearest valid value: %.1f)", value, label, rounded))
	}
}

func (v *Validator) checkContent(rec *experience.Record, res *Result) {
	content := rec.Content()
	lower := strings.ToLower(content)
	violationsBefore := len(res.Violations)

	if n := utf8.RuneCountInString(content); n < v.rules.MinContentLength {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Content too short: %d characters (minimum %d)", n, v.rules.MinContentLength))
	}

	for _, phrase := range v.rules.BoilerplatePhrases {
		if strings.Contains(lower, phrase) {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Content matches boilerplate phrase: %q", phrase))
		}
	}

	tokens := strings.Fields(lower)
	if len(tokens) > 0 {
		unique := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			unique[tok] = struct{}{}
		}
		ratio := float64(len(unique)) / float64(len(tokens))
		if ratio < v.rules.MinUniqueTokenRatio {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Content is repetitive: %d%% unique tokens (minimum %d%%)",
					int(ratio*100), int(v.rules.MinUniqueTokenRatio*100)))
		}
	}

	// Generic wording is only a soft flag on otherwise well-formed content.
	if len(res.Violations) == violationsBefore && genericContentPattern.MatchString(content) {
		res.Warnings = append(res.Warnings, "Content contains generic wording")
	}
}

type ratedAspect struct {
	aspect string
	value  float64
}

// sortedRatingList yields map entries in a stable order so violation lists
// are deterministic for identical input.
func sortedRatingList(ratings map[string]float64) []ratedAspect {
	if len(ratings) == 0 {
		return nil
	}
	out := make([]ratedAspect, 0, len(ratings))
	for aspect, value := range ratings {
		out = append(out, ratedAspect{aspect: aspect, value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].aspect < out[j].aspect })
	return out
}
