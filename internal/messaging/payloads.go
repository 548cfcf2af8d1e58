package messaging

import "companion-server/internal/domain"

// TurnTaskPayload - задача на обработку одного хода, приходящая из очереди.
// Шлюз кладет сюда верифицированный триггер (подарок/извинение), если он есть.
type TurnTaskPayload struct {
	TaskID      string             `json:"task_id"`
	UserID      string             `json:"user_id"`
	CharacterID string             `json:"character_id"`
	Message     string             `json:"message"`
	TriggerType domain.TriggerType `json:"trigger_type,omitempty"`
}

// TurnResultPayload - результат обработанного хода для шлюза.
type TurnResultPayload struct {
	TaskID          string               `json:"task_id"`
	UserID          string               `json:"user_id"`
	CharacterID     string               `json:"character_id"`
	ReplyText       string               `json:"reply_text"`
	EmotionScore    float64              `json:"emotion_score"`
	EmotionState    domain.EmotionBand   `json:"emotion_state"`
	Level           int                  `json:"level"`
	TriggeredEvents []string             `json:"triggered_events"`
	Refused         bool                 `json:"refused"`
	RefusalReason   domain.RefusalReason `json:"refusal_reason"`
	// Error заполняется только при недоступности генерации: ход можно
	// безопасно повторить.
	Error string `json:"error,omitempty"`
}
