package funnel

import (
	"sort"
	"strings"

	"github.com/habitmastery/blueprint-api/internal/model"
)

// tagRule appends labels when the selected answer field contains any of the
// given substrings (case-insensitive), or when it exceeds minLen runes for
// length-based rules.
type tagRule struct {
	field  func(model.FormAnswers) string
	any    []string
	minLen int
	labels []string
}

// tagRules is the ordered predicate table mapping form answers to
// segmentation labels. Ordering only affects evaluation, not output: the
// result set is deduplicated and sorted.
var tagRules = []tagRule{
	// Goal labels.
	{field: primaryGoal, any: []string{"finances"}, labels: []string{"Goal_Financial_Clarity"}},
	{field: primaryGoal, any: []string{"fitness", "health"}, labels: []string{"Goal_Health_Fitness"}},
	{field: primaryGoal, any: []string{"learning", "growth"}, labels: []string{"Goal_Learning_Growth"}},
	{field: primaryGoal, any: []string{"focus", "productivity", "projects"}, labels: []string{"Goal_Productivity_Projects"}},

	// Obstacle labels.
	{field: biggestFrustration, any: []string{"consistency"}, labels: []string{"Obstacle_Discipline_Consistency"}},
	{field: biggestFrustration, any: []string{"overwhelm", "where to focus"}, labels: []string{"Obstacle_Clarity_Focus", "Obstacle_Overwhelm"}},
	{field: biggestFrustration, any: []string{"accountability"}, labels: []string{"Obstacle_Accountability_Lacking", "Obstacle_Lonely_Journey"}},
	{field: biggestFrustration, any: []string{"start strong"}, labels: []string{"Obstacle_Perfectionism"}},

	// Emotional labels.
	{field: biggestFrustration, any: []string{"frustrat", "struggle"}, labels: []string{"Emotional_Frustrated"}},
	{field: biggestFrustration, any: []string{"overwhelm"}, labels: []string{"Emotional_Overwhelmed"}},
	{field: futureVision, minLen: 11, labels: []string{"Emotional_Hopeful"}},
	{field: thirtyDayFocus, minLen: 6, labels: []string{"Emotional_Determined"}},
}

func primaryGoal(a model.FormAnswers) string        { return a.PrimaryGoal }
func biggestFrustration(a model.FormAnswers) string { return a.BiggestFrustration }
func futureVision(a model.FormAnswers) string       { return a.FutureVision }
func thirtyDayFocus(a model.FormAnswers) string     { return a.ThirtyDayFocus }

// DeriveTags maps form answers to a deduplicated, sorted set of
// segmentation labels. Total and deterministic: missing fields contribute
// no labels, and identical input always yields the identical set.
func DeriveTags(answers model.FormAnswers) []string {
	seen := make(map[string]bool)
	var tags []string

	for _, rule := range tagRules {
		value := rule.field(answers)
		if !rule.matches(value) {
			continue
		}
		for _, label := range rule.labels {
			if !seen[label] {
				seen[label] = true
				tags = append(tags, label)
			}
		}
	}

	sort.Strings(tags)
	return tags
}

func (r tagRule) matches(value string) bool {
	if value == "" {
		return false
	}
	if r.minLen > 0 {
		return len([]rune(value)) >= r.minLen
	}
	lower := strings.ToLower(value)
	for _, sub := range r.any {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
