package parser

import (
	"regexp"
	"strings"
)

// repairSequence is the fixed order of textual repairs applied between parse
// retries. Each repair is cumulative: the output of one feeds the next.
var repairSequence = []func(string) string{
	repairTrailingCommas,
	repairSingleQuotes,
	repairUnescapedQuotes,
	repairUnbalancedBrackets,
}

// largestBalancedObject returns the largest top-level {...} span in s, with
// string and escape awareness so braces inside string values do not count.
// Returns "" when no balanced object exists.
func largestBalancedObject(s string) string {
	bestStart, bestEnd := -1, -1
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					if i-start > bestEnd-bestStart {
						bestStart, bestEnd = start, i
					}
					start = -1
				}
			}
		}
	}

	if bestStart < 0 {
		return ""
	}
	return s[bestStart : bestEnd+1]
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// repairTrailingCommas removes commas before closing braces/brackets.
func repairTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// repairSingleQuotes rewrites single-quoted JSON into double quotes. Applied
// only when the text carries no double quotes at all, so it cannot corrupt
// apostrophes inside otherwise valid string values.
func repairSingleQuotes(s string) string {
	if strings.ContainsRune(s, '"') {
		return s
	}
	return strings.ReplaceAll(s, "'", `"`)
}

// repairUnescapedQuotes escapes interior double quotes inside string values:
// a quote followed by neither a structural character nor end of input is not
// a closing quote. Heuristic, but it recovers the common `"it"s fine"` break.
func repairUnescapedQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			b.WriteByte(ch)
			escaped = false
			continue
		}
		if ch == '\\' {
			b.WriteByte(ch)
			escaped = true
			continue
		}
		if ch != '"' {
			b.WriteByte(ch)
			continue
		}

		if !inString {
			inString = true
			b.WriteByte(ch)
			continue
		}

		// Inside a string: decide whether this quote really closes it by
		// looking at the next non-space character.
		if closesString(s, i+1) {
			inString = false
			b.WriteByte(ch)
		} else {
			b.WriteString(`\"`)
		}
	}
	return b.String()
}

// closesString reports whether a quote at position i-1 is followed by a
// structural JSON character, i.e. it legitimately terminates a string.
func closesString(s string, i int) bool {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',', '}', ']', ':':
			return true
		default:
			return false
		}
	}
	return true // end of input
}

// repairUnbalancedBrackets appends missing closing braces/brackets, counting
// only structural brackets outside string values.
func repairUnbalancedBrackets(s string) string {
	counts := map[rune]int{'{': 0, '}': 0, '[': 0, ']': 0}
	inString := false
	escaped := false

	for _, ch := range s {
		if ch == '"' && !escaped {
			inString = !inString
		}
		if !inString {
			if _, ok := counts[ch]; ok {
				counts[ch]++
			}
		}
		if ch == '\\' && !escaped {
			escaped = true
		} else {
			escaped = false
		}
	}

	fixed := s
	if inString {
		fixed += `"`
	}
	if n := counts['['] - counts[']']; n > 0 {
		fixed += strings.Repeat("]", n)
	}
	if n := counts['{'] - counts['}']; n > 0 {
		fixed += strings.Repeat("}", n)
	}
	return fixed
}

var replyFieldRe = regexp.MustCompile(`"(?:reply|text|response|message|content)"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// extractReplyField pulls just the reply string out of broken JSON.
func extractReplyField(s string) (string, bool) {
	m := replyFieldRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	reply := unescapeJSONString(m[1])
	reply = strings.TrimSpace(reply)
	return reply, reply != ""
}

// unescapeJSONString resolves the escapes the regex capture left in place.
func unescapeJSONString(s string) string {
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t", `\r`, "")
	return r.Replace(s)
}
