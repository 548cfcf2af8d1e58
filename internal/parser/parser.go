// Package parser recovers structured replies from the generator's raw output.
// The generator is an external model that frequently violates its output
// contract: prose around the JSON, unclosed braces, single quotes, trailing
// commas, or no JSON at all. Parse therefore degrades through a fixed ladder
// of strategies and always returns a usable result instead of failing the turn.
package parser

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"companion-server/internal/domain"
)

// FallbackReply is returned when nothing usable survives the ladder.
const FallbackReply = "Sorry, I lost my train of thought for a second... what were we talking about?"

// fields the generator is expected to emit.
const (
	fieldReply        = "reply"
	fieldEmotionDelta = "emotion_delta"
	fieldCategory     = "category"
)

// alternative keys models tend to substitute for "reply".
var replyAliasKeys = []string{fieldReply, "text", "response", "message", "content"}

const (
	emotionDeltaMin = -50
	emotionDeltaMax = 50
)

// Parser implements the recovery ladder. Stateless apart from the logger.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("ResponseParser")}
}

// Parse never fails: for any input, including empty strings, random noise and
// deeply nested braces, it returns a best-effort ParsedResponse. Strategy
// order: (a) largest balanced JSON object; (b) textual repairs and retry;
// (c) regex-style reply extraction; (d) strip JSON debris from the raw text,
// falling back to a canned filler.
func (p *Parser) Parse(raw string) domain.ParsedResponse {
	res := domain.ParsedResponse{
		EmotionDelta: 0,
		Category:     domain.CategorySmallTalk,
		ParseSuccess: false,
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		res.Reply = FallbackReply
		return res
	}

	// (a) Locate the largest balanced-brace JSON object and parse it.
	candidate := largestBalancedObject(trimmed)
	if candidate != "" {
		if p.tryObject(candidate, &res) {
			return res
		}
	} else {
		// No balanced object at all: a truncated one may still start here.
		if idx := strings.IndexByte(trimmed, '{'); idx >= 0 {
			candidate = trimmed[idx:]
		}
	}

	// (b) Fixed sequence of textual repairs, retrying after each.
	if candidate != "" {
		repaired := candidate
		for _, repair := range repairSequence {
			repaired = repair(repaired)
			if p.tryObject(repaired, &res) {
				res.Repaired = true
				p.logger.Debug("response repaired", zap.Int("raw_len", len(raw)))
				return res
			}
		}
	}

	// (c) Extract just the reply string. The delta is deliberately not
	// salvaged here: a degraded turn always commits with delta 0.
	if reply, ok := extractReplyField(trimmed); ok {
		res.Reply = reply
		return res
	}

	// (d) Final fallback: strip JSON punctuation, known keys and enum tokens
	// and return whatever prose remains.
	res.Reply = stripJSONDebris(trimmed)
	if res.Reply == "" {
		res.Reply = FallbackReply
	}
	return res
}

// tryObject attempts to unmarshal candidate and, on success, extracts and
// validates the contract fields into res. Returns false when the candidate is
// not valid JSON or carries no usable reply.
func (p *Parser) tryObject(candidate string, res *domain.ParsedResponse) bool {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &data); err != nil {
		return false
	}

	reply := ""
	for _, key := range replyAliasKeys {
		if v, ok := data[key].(string); ok && strings.TrimSpace(v) != "" {
			reply = strings.TrimSpace(v)
			break
		}
	}
	if reply == "" {
		return false
	}

	res.Reply = reply
	res.ParseSuccess = true
	res.EmotionDelta = clampDelta(numberField(data, fieldEmotionDelta))
	if cat, ok := data[fieldCategory].(string); ok {
		res.Category = snapCategory(cat)
	}
	return true
}

// numberField tolerantly reads a numeric field: JSON numbers arrive as
// float64, but models also emit quoted numbers.
func numberField(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &f); err == nil {
			return f
		}
	}
	return 0
}

// clampDelta validates the proposed emotion delta: integer in [-50, 50].
func clampDelta(v float64) int {
	d := int(v)
	if d > emotionDeltaMax {
		return emotionDeltaMax
	}
	if d < emotionDeltaMin {
		return emotionDeltaMin
	}
	return d
}
