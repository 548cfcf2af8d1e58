package parser

import (
	"regexp"
	"strings"

	"companion-server/internal/domain"
)

// Known contract keys the final fallback strips out of the raw text.
var knownKeyRe = regexp.MustCompile(`"?(?:reply|text|response|message|content|emotion_delta|category|parse_success)"?\s*:`)

var (
	jsonPunctRe  = regexp.MustCompile(`[{}\[\]"]`)
	numberLineRe = regexp.MustCompile(`(?m)^\s*-?\d+(?:\.\d+)?\s*,?\s*$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// stripJSONDebris removes JSON punctuation, known keys and enum tokens from
// the raw text and returns whatever prose remains. Used as the last rung of
// the ladder, when the output contains no recoverable structure.
func stripJSONDebris(raw string) string {
	s := knownKeyRe.ReplaceAllString(raw, " ")
	s = jsonPunctRe.ReplaceAllString(s, " ")
	s = numberLineRe.ReplaceAllString(s, " ")

	// Remove bare enum tokens: a category name floating in the debris is
	// contract residue, not prose.
	for _, c := range domain.AllCategories {
		s = removeBareToken(s, string(c))
	}

	s = strings.ReplaceAll(s, "\\n", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ,:;")
	return strings.TrimSpace(s)
}

// removeBareToken removes whole-word occurrences of token.
func removeBareToken(s, token string) string {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(token) + `\b`)
	return re.ReplaceAllString(s, " ")
}
