// Package intent implements the rule-based intent classifier: an ordered
// rule table over keyword groups with a total default branch. It is
// deterministic, stateless and does no I/O, so a model-backed classifier can
// replace it behind the same interface without touching downstream code.
package intent

import (
	"strings"
	"unicode/utf8"

	"companion-server/internal/domain"
)

// rule is one row of the ordered rule table. First match wins.
type rule struct {
	category domain.Category
	keywords []string
}

// ruleTable is ordered from most to least specific: confession before flirt,
// insult before complaint, so the narrower intent is not shadowed.
var ruleTable = []rule{
	{domain.CategoryApology, apologyKeywords},
	{domain.CategoryGift, giftKeywords},
	{domain.CategoryLoveConfession, confessionKeywords},
	{domain.CategoryKissRequest, kissKeywords},
	{domain.CategoryDateRequest, dateKeywords},
	{domain.CategoryInsult, insultKeywords},
	{domain.CategoryDemand, demandKeywords},
	{domain.CategoryComplaint, complaintKeywords},
	{domain.CategoryRoleplayCommand, roleplayKeywords},
	{domain.CategoryCompliment, complimentKeywords},
	{domain.CategoryFlirt, flirtKeywords},
	{domain.CategoryFeelingsShare, feelingsKeywords},
	{domain.CategoryPersonalQuestion, personalQuestionKeywords},
	{domain.CategoryGreeting, greetingKeywords},
	{domain.CategoryFarewell, farewellKeywords},
}

// Classifier is the rule-table implementation of intent classification.
type Classifier struct{}

// NewClassifier returns a ready classifier. It carries no state.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify maps a message to an IntentResult. It never fails: messages that
// match no rule fall through to the default branch (small talk for anything
// with content, unknown for degenerate input).
func (c *Classifier) Classify(message string) domain.IntentResult {
	lower := strings.ToLower(strings.TrimSpace(message))

	category := classifyCategory(lower)

	// NSFW detection is an independent keyword set, orthogonal to category.
	isNSFW := containsAny(lower, nsfwKeywords)
	if category == domain.CategoryNSFWRequest {
		isNSFW = true
	}

	safety := domain.SafetySafe
	if containsAny(lower, blockKeywords) {
		safety = domain.SafetyBlock
	}

	difficulty, ok := categoryDifficulty[category]
	if !ok {
		difficulty = defaultDifficulty
	}

	return domain.IntentResult{
		Category:   category,
		Sentiment:  sentimentFor(category, lower),
		Difficulty: difficulty,
		IsNSFW:     isNSFW,
		SafetyFlag: safety,
	}
}

func classifyCategory(lower string) domain.Category {
	if lower == "" {
		return domain.CategoryUnknown
	}

	// Explicit NSFW phrasing outranks the generic table: a flirt line with an
	// explicit request is a request, not a flirt.
	if containsAny(lower, nsfwKeywords) && looksLikeRequest(lower) {
		return domain.CategoryNSFWRequest
	}

	for _, r := range ruleTable {
		if containsAny(lower, r.keywords) {
			return r.category
		}
	}

	// Total default branch: never fail to classify.
	if utf8.RuneCountInString(lower) < 2 {
		return domain.CategoryUnknown
	}
	return domain.CategorySmallTalk
}

// looksLikeRequest distinguishes "asking for it" from merely mentioning an
// NSFW word (which only sets the is_nsfw flag).
func looksLikeRequest(lower string) bool {
	for _, marker := range []string{"can you", "could you", "will you", "would you", "please", "want you to", "let's", "lets ", "?"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// sentimentFor computes category base value ± lexicon-hit adjustment,
// clamped to [-1, 1].
func sentimentFor(category domain.Category, lower string) float64 {
	base := categoryBaseSentiment[category]

	var adj float64
	for _, kw := range positiveLexicon {
		if strings.Contains(lower, kw.keyword) {
			adj += kw.weight
		}
	}
	for _, kw := range negativeLexicon {
		if strings.Contains(lower, kw.keyword) {
			adj -= kw.weight
		}
	}
	if adj > maxLexiconAdjustment {
		adj = maxLexiconAdjustment
	} else if adj < -maxLexiconAdjustment {
		adj = -maxLexiconAdjustment
	}

	s := base + adj
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return s
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
