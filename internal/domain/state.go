package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmotionBand представляет дискретную полосу эмоционального состояния,
// производную от непрерывного emotion_score.
type EmotionBand string

const (
	BandColdWar      EmotionBand = "cold_war"
	BandHostile      EmotionBand = "hostile"
	BandCold         EmotionBand = "cold"
	BandNeutral      EmotionBand = "neutral"
	BandFriendly     EmotionBand = "friendly"
	BandWarm         EmotionBand = "warm"
	BandAffectionate EmotionBand = "affectionate"
	BandLoving       EmotionBand = "loving"
)

// ColdWarThreshold - порог, ниже которого (включительно) отношения входят
// в состояние "холодной войны".
const ColdWarThreshold = -75.0

// EmotionScoreMin и EmotionScoreMax - жесткие границы emotion_score.
const (
	EmotionScoreMin = -100.0
	EmotionScoreMax = 100.0
)

// BandForScore возвращает полосу, в которую попадает счет.
// Границы подобраны так, чтобы cold_war совпадал с инвариантом score <= -75.
func BandForScore(score float64) EmotionBand {
	switch {
	case score <= ColdWarThreshold:
		return BandColdWar
	case score <= -40:
		return BandHostile
	case score <= -15:
		return BandCold
	case score < 15:
		return BandNeutral
	case score < 40:
		return BandFriendly
	case score < 60:
		return BandWarm
	case score < 80:
		return BandAffectionate
	default:
		return BandLoving
	}
}

// Stage представляет одну из пяти дискретных фаз отношений.
type Stage int

const (
	StageStranger Stage = iota
	StageAcquaintance
	StageFriend
	StageRomance
	StageIntimate
)

// String возвращает строковое имя фазы (для директив и логов).
func (s Stage) String() string {
	switch s {
	case StageStranger:
		return "stranger"
	case StageAcquaintance:
		return "acquaintance"
	case StageFriend:
		return "friend"
	case StageRomance:
		return "romance"
	case StageIntimate:
		return "intimate"
	default:
		return "unknown"
	}
}

// MessageStamp - запись о недавнем сообщении для анти-спам окна.
type MessageStamp struct {
	Hash string    `json:"hash"`
	At   time.Time `json:"at"`
}

// XPGrant - запись о начислении XP для скользящего суточного потолка.
type XPGrant struct {
	Amount float64   `json:"amount"`
	At     time.Time `json:"at"`
}

const (
	// RecentMessagesCap - размер кольцевого буфера недавних сообщений.
	RecentMessagesCap = 8
	// RecentXPCap - размер кольцевого буфера начислений XP.
	RecentXPCap = 64
)

// RelationshipState - состояние отношений одной пары (пользователь, персонаж).
// Создается лениво при первом взаимодействии и мутирует ровно один раз
// за завершенный ход, атомарно (optimistic compare-and-commit по Version).
type RelationshipState struct {
	UserID      uuid.UUID `json:"user_id"`
	CharacterID uuid.UUID `json:"character_id"`

	EmotionScore float64     `json:"emotion_score"` // [-100, 100]
	EmotionState EmotionBand `json:"emotion_state"`
	ColdWar      bool        `json:"cold_war"` // инвариант: ColdWar == (EmotionScore <= -75)

	TotalXP    float64 `json:"total_xp"`
	DeferredXP float64 `json:"deferred_xp"` // XP сверх суточного потолка, ждет окна
	Level      int     `json:"level"`       // производное от TotalXP

	// UnlockedEvents растет монотонно; уменьшается только при явном
	// внешнем стирании данных.
	UnlockedEvents []string `json:"unlocked_events"`

	RecentMessages []MessageStamp `json:"recent_messages"`
	RecentXP       []XPGrant      `json:"recent_xp"`

	LastInteractionAt time.Time `json:"last_interaction_at"`
	CreatedAt         time.Time `json:"created_at"`

	// Version используется хранилищем для optimistic commit (single writer на пару).
	Version int64 `json:"-"`
}

// NewRelationshipState возвращает состояние по умолчанию для новой пары.
func NewRelationshipState(userID, characterID uuid.UUID, now time.Time) *RelationshipState {
	return &RelationshipState{
		UserID:         userID,
		CharacterID:    characterID,
		EmotionScore:   0,
		EmotionState:   BandNeutral,
		ColdWar:        false,
		UnlockedEvents: []string{},
		RecentMessages: []MessageStamp{},
		RecentXP:       []XPGrant{},
		CreatedAt:      now,
	}
}

// HasEvent сообщает, разблокировано ли событие.
func (s *RelationshipState) HasEvent(eventID string) bool {
	for _, id := range s.UnlockedEvents {
		if id == eventID {
			return true
		}
	}
	return false
}

// AddEvent добавляет событие в UnlockedEvents. Идемпотентна: повторное
// добавление того же id - no-op. Возвращает true, если событие новое.
func (s *RelationshipState) AddEvent(eventID string) bool {
	if s.HasEvent(eventID) {
		return false
	}
	s.UnlockedEvents = append(s.UnlockedEvents, eventID)
	return true
}

// PushMessageStamp добавляет отметку сообщения в кольцевой буфер.
func (s *RelationshipState) PushMessageStamp(stamp MessageStamp) {
	s.RecentMessages = append(s.RecentMessages, stamp)
	if len(s.RecentMessages) > RecentMessagesCap {
		s.RecentMessages = s.RecentMessages[len(s.RecentMessages)-RecentMessagesCap:]
	}
}

// PushXPGrant добавляет начисление XP в кольцевой буфер.
func (s *RelationshipState) PushXPGrant(grant XPGrant) {
	s.RecentXP = append(s.RecentXP, grant)
	if len(s.RecentXP) > RecentXPCap {
		s.RecentXP = s.RecentXP[len(s.RecentXP)-RecentXPCap:]
	}
}

// Clone возвращает глубокую копию состояния. Хранилища отдают копии,
// чтобы вызывающий код не делил изменяемую память с кэшем.
func (s *RelationshipState) Clone() *RelationshipState {
	cp := *s
	cp.UnlockedEvents = append([]string(nil), s.UnlockedEvents...)
	cp.RecentMessages = append([]MessageStamp(nil), s.RecentMessages...)
	cp.RecentXP = append([]XPGrant(nil), s.RecentXP...)
	return &cp
}
