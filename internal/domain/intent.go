package domain

// Category - категория намерения пользовательского сообщения.
type Category string

const (
	CategoryGreeting         Category = "greeting"
	CategoryFarewell         Category = "farewell"
	CategorySmallTalk        Category = "small_talk"
	CategoryPersonalQuestion Category = "personal_question"
	CategoryCompliment       Category = "compliment"
	CategoryFlirt            Category = "flirt"
	CategoryFeelingsShare    Category = "feelings_share"
	CategoryGift             Category = "gift"
	CategoryApology          Category = "apology"
	CategoryInsult           Category = "insult"
	CategoryComplaint        Category = "complaint"
	CategoryDemand           Category = "demand"
	CategoryRoleplayCommand  Category = "roleplay_command"
	CategoryDateRequest      Category = "date_request"
	CategoryLoveConfession   Category = "love_confession"
	CategoryKissRequest      Category = "kiss_request"
	CategoryNSFWRequest      Category = "nsfw_request"
	CategoryUnknown          Category = "unknown"
)

// AllCategories перечисляет все категории в стабильном порядке.
// Используется валидатором ответа для сопоставления с ближайшей категорией.
var AllCategories = []Category{
	CategoryGreeting,
	CategoryFarewell,
	CategorySmallTalk,
	CategoryPersonalQuestion,
	CategoryCompliment,
	CategoryFlirt,
	CategoryFeelingsShare,
	CategoryGift,
	CategoryApology,
	CategoryInsult,
	CategoryComplaint,
	CategoryDemand,
	CategoryRoleplayCommand,
	CategoryDateRequest,
	CategoryLoveConfession,
	CategoryKissRequest,
	CategoryNSFWRequest,
	CategoryUnknown,
}

// IsRomantic сообщает, относится ли категория к романтическому/явному
// классу, на который действует "стена френдзоны".
func (c Category) IsRomantic() bool {
	switch c {
	case CategoryFlirt, CategoryDateRequest, CategoryLoveConfession,
		CategoryKissRequest, CategoryNSFWRequest:
		return true
	}
	return false
}

// IsFlirtation сообщает, освобождена ли категория от анти-спам демпфера
// коротких сообщений (романтические связки - желаемое поведение).
func (c Category) IsFlirtation() bool {
	switch c {
	case CategoryFlirt, CategoryCompliment, CategoryLoveConfession,
		CategoryDateRequest, CategoryKissRequest:
		return true
	}
	return false
}

// SafetyFlag - результат независимой проверки безопасности сообщения.
type SafetyFlag string

const (
	SafetySafe  SafetyFlag = "safe"
	SafetyBlock SafetyFlag = "block"
)

// IntentResult - эфемерный результат классификации одного сообщения.
type IntentResult struct {
	Category   Category   `json:"category"`
	Sentiment  float64    `json:"sentiment"`  // [-1, 1]
	Difficulty float64    `json:"difficulty"` // [0, 100], требуемый Power
	IsNSFW     bool       `json:"is_nsfw"`
	SafetyFlag SafetyFlag `json:"safety_flag"`
}

// TriggerType - внешне верифицированный тип триггера хода. Обычные ходы
// идут с TriggerNone; верифицированные триггеры поставляет вызывающая
// сторона (например, подтвержденный платеж за подарок).
type TriggerType string

const (
	TriggerNone            TriggerType = ""
	TriggerVerifiedApology TriggerType = "apology"
	TriggerVerifiedGift    TriggerType = "gift"
)

// AllowedInColdWar сообщает, может ли триггер поднимать счет во время
// холодной войны.
func (t TriggerType) AllowedInColdWar() bool {
	return t == TriggerVerifiedApology || t == TriggerVerifiedGift
}
