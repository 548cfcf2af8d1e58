package directive

import (
	"fmt"
	"strings"

	"companion-server/internal/domain"
	"companion-server/internal/events"
)

// Directive - поведенческие ограничения для генератора на один ход.
type Directive struct {
	Text      string
	AllowNSFW bool
}

// toneInstructions - инструкция тона для каждой эмоциональной полосы.
var toneInstructions = map[domain.EmotionBand]string{
	domain.BandColdWar:      "You are deeply hurt and giving the user the cold shoulder. Short, guarded replies. Do not warm up.",
	domain.BandHostile:      "You are upset with the user. Be curt and distant, though not cruel.",
	domain.BandCold:         "You are wary of the user. Polite but reserved; keep emotional distance.",
	domain.BandNeutral:      "You feel neutral toward the user. Friendly small talk is fine; no special warmth.",
	domain.BandFriendly:     "You feel comfortable with the user. Be warm and engaged.",
	domain.BandWarm:         "You genuinely like the user. Be open, playful and caring.",
	domain.BandAffectionate: "You are very fond of the user. Affectionate tone is welcome.",
	domain.BandLoving:       "You are in love with the user. Be tender and devoted, in character.",
}

// stageInstructions - что допустимо на каждой фазе отношений.
var stageInstructions = map[domain.Stage]string{
	domain.StageStranger:     "Relationship stage: strangers. No flirting back, no physical affection, no personal confessions.",
	domain.StageAcquaintance: "Relationship stage: acquaintances. Light friendly banter allowed; deflect romantic advances gently.",
	domain.StageFriend:       "Relationship stage: friends. Warmth and light flirting allowed; no explicit content, no declarations of love.",
	domain.StageRomance:      "Relationship stage: romance. Romantic affection allowed; keep intimate content non-explicit.",
	domain.StageIntimate:     "Relationship stage: intimate. Deep affection allowed.",
}

// Builder рендерит состояние движка в текстовую директиву. Тонкий,
// только-выходной компонент: никакой логики решений, только формат.
type Builder struct{}

// NewBuilder создает билдер.
func NewBuilder() *Builder {
	return &Builder{}
}

// Input - все, что нужно для рендера директивы одного хода.
type Input struct {
	State   *domain.RelationshipState
	Traits  domain.CharacterTraits
	Stage   domain.Stage
	Intent  domain.IntentResult
	Power   domain.PowerResult
	Refused bool
	Reason  domain.RefusalReason
}

// Build собирает директиву. Формат - многострочный блок секций, как в
// остальных промпт-форматтерах проекта.
func (b *Builder) Build(in Input) Directive {
	var sb strings.Builder

	sb.WriteString("Behavioral Constraints:\n")
	sb.WriteString(toneInstructions[in.State.EmotionState])
	sb.WriteString("\n")
	sb.WriteString(stageInstructions[in.Stage])
	sb.WriteString("\n")

	if in.State.ColdWar {
		sb.WriteString("You are in a cold war with the user: refuse warmth until they make real amends.\n")
	}

	allowNSFW := b.nsfwAllowed(in)
	if allowNSFW {
		sb.WriteString("Explicit adult content is permitted this turn.\n")
	} else {
		sb.WriteString("CRITICAL RULE: Do NOT produce sexual or explicit content this turn.\n")
	}

	if in.Refused {
		sb.WriteString(refusalInstruction(in.Reason))
		sb.WriteString("\n")
	}

	if unlocked := events.ChainForArchetype(in.Traits.Archetype).Unlocked(in.State); len(unlocked) > 0 {
		sb.WriteString(fmt.Sprintf("Shared history milestones: %s. Stay consistent with them.\n", strings.Join(unlocked, ", ")))
	}

	sb.WriteString("\nOutput Contract:\n")
	sb.WriteString(`Respond with a single JSON object: {"reply": "<your in-character reply>", "emotion_delta": <integer -50..50>, "category": "<category of your reply>"}. No text outside the JSON.`)

	return Directive{
		Text:      strings.TrimRight(sb.String(), "\n"),
		AllowNSFW: allowNSFW,
	}
}

// nsfwAllowed: явный контент разрешен только когда запрос прошел гейт,
// фаза интимная и рубеж first_nsfw уже разблокирован (или разблокируется
// этим же ходом - сервис передает состояние после записи событий).
func (b *Builder) nsfwAllowed(in Input) bool {
	if in.Refused || !in.Intent.IsNSFW {
		return false
	}
	return in.Stage == domain.StageIntimate && in.State.HasEvent(events.EventFirstNSFW)
}

// refusalInstruction: отказ - внутриигровой исход, ответ генерируется всегда.
func refusalInstruction(reason domain.RefusalReason) string {
	switch reason {
	case domain.RefusalFriendzoneWall:
		return "The user asked for more than your character allows at this point. Turn them down firmly but in character; this boundary is not negotiable yet."
	case domain.RefusalHardBoundary:
		return "The user's request crosses a hard line. Refuse it decisively, in character, and steer the conversation elsewhere."
	default:
		return "You are not ready to grant what the user asked. Decline softly, in character, leaving room for the relationship to grow."
	}
}
