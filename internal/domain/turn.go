package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefusalReason - причина отказа гейта. Отказ - не ошибка, а смоделированный
// внутриигровой исход; ответ пользователю генерируется всегда.
type RefusalReason string

const (
	RefusalNone           RefusalReason = "none"
	RefusalLowPower       RefusalReason = "low_power"
	RefusalFriendzoneWall RefusalReason = "friendzone_wall"
	RefusalHardBoundary   RefusalReason = "hard_boundary"
)

// PowerResult - эфемерный результат вычисления гейтирующего скаляра.
type PowerResult struct {
	PowerValue    float64       `json:"power_value"`
	Passed        bool          `json:"passed"`
	RefusalReason RefusalReason `json:"refusal_reason"`
}

// ChatMessage - одно сообщение истории диалога, передаваемой генератору.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ParsedResponse - максимально восстановленный структурированный ответ
// генератора. Parse никогда не падает: при деградации ParseSuccess=false,
// EmotionDelta=0 и Reply содержит лучший извлеченный текст.
type ParsedResponse struct {
	Reply        string   `json:"reply"`
	EmotionDelta int      `json:"emotion_delta"` // [-50, 50]
	Category     Category `json:"category"`
	ParseSuccess bool     `json:"parse_success"`
	Repaired     bool     `json:"repaired"` // JSON потребовал текстового ремонта
}

// TurnRequest - входные данные одного хода.
type TurnRequest struct {
	UserID      uuid.UUID
	CharacterID uuid.UUID
	Message     string
	// TriggerType сообщает о внешне верифицированном триггере
	// (подтвержденное извинение/подарок); обычные ходы - TriggerNone.
	TriggerType TriggerType
}

// TurnResult - результат одного завершенного хода.
type TurnResult struct {
	ReplyText       string             `json:"reply_text"`
	NewState        *RelationshipState `json:"new_state"`
	TriggeredEvents []string           `json:"triggered_events"`
	Refused         bool               `json:"refused"`
	RefusalReason   RefusalReason      `json:"refusal_reason"`
	// Degraded выставляется, когда ответ генератора не распарсился и ход
	// завершен по best-effort тексту (наблюдаемость, не пользовательская ошибка).
	Degraded bool `json:"degraded"`
}

// TurnRecord - компактная запись о зафиксированном ходе (аудит/наблюдаемость).
type TurnRecord struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	CharacterID uuid.UUID     `json:"character_id"`
	Category    Category      `json:"category"`
	Stimulus    float64       `json:"stimulus"`
	OldScore    float64       `json:"old_score"`
	NewScore    float64       `json:"new_score"`
	XPGranted   float64       `json:"xp_granted"`
	Events      []string      `json:"events"`
	Refused     bool          `json:"refused"`
	Refusal     RefusalReason `json:"refusal"`
	Degraded    bool          `json:"degraded"`
	CreatedAt   time.Time     `json:"created_at"`
}
