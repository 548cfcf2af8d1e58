package emotion

import (
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"companion-server/internal/domain"
	"companion-server/internal/intent"
)

// Config - настроечные параметры эмоционального движка. Все значения -
// параметры тюнинга, не инварианты.
type Config struct {
	DecayFactor          float64       // < 1, тянет счет к нулю без стимулов
	LossAversionFactor   float64       // во сколько раз усиливаются негативные стимулы
	SpamWindow           time.Duration // окно анти-спама
	ShortMessageRunes    int           // сообщения короче считаются малосодержательными
	ShortMessageFactor   float64       // демпфер позитивного вклада коротких сообщений
	ApologyRecoveryBonus float64       // стимул верифицированного извинения
	GiftRecoveryBonus    float64       // стимул верифицированного подарка
}

// DefaultConfig возвращает параметры по умолчанию.
func DefaultConfig() Config {
	return Config{
		DecayFactor:          0.95,
		LossAversionFactor:   2.0,
		SpamWindow:           10 * time.Minute,
		ShortMessageRunes:    12,
		ShortMessageFactor:   0.5,
		ApologyRecoveryBonus: 20,
		GiftRecoveryBonus:    15,
	}
}

// Engine реализует модель "демпфированного слайдера": один непрерывный
// аффективный счет на пару, с асимметричной (loss-averse) реакцией на
// позитив/негатив, распадом к нулю и замком холодной войны.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine создает движок.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if cfg.DecayFactor <= 0 || cfg.DecayFactor >= 1 {
		cfg.DecayFactor = DefaultConfig().DecayFactor
	}
	if cfg.LossAversionFactor < 1 {
		cfg.LossAversionFactor = DefaultConfig().LossAversionFactor
	}
	return &Engine{cfg: cfg, logger: logger.Named("EmotionEngine")}
}

// Input - входные данные одного вычисления.
type Input struct {
	State       *domain.RelationshipState
	Intent      domain.IntentResult
	Traits      domain.CharacterTraits
	Message     string
	TriggerType domain.TriggerType
	// GeneratorDelta - дельта, предложенная генератором и провалидированная
	// парсером; 0 при деградации парсинга.
	GeneratorDelta float64
	Now            time.Time
}

// Result - результат вычисления; применяется к состоянию через Commit.
type Result struct {
	OldScore       float64
	NewScore       float64
	OldBand        domain.EmotionBand
	NewBand        domain.EmotionBand
	ColdWarEntered bool
	ColdWarExited  bool
	Stimulus       float64
	SpamThrottled  bool
	MessageHash    string
}

// Evaluate вычисляет новый счет, не мутируя состояние. Порядок шагов:
// стимул -> loss aversion -> чувствительность -> анти-спам -> триггерный
// бонус и дельта генератора -> замок холодной войны -> decay и clamp.
func (e *Engine) Evaluate(in Input) Result {
	st := in.State
	hash := HashMessage(in.Message)

	// 1-2. Базовый стимул с асимметрией потерь.
	stimulus := in.Intent.Sentiment*10 + intent.CategoryEmotionModifier[in.Intent.Category]
	if stimulus < 0 {
		stimulus *= e.cfg.LossAversionFactor
	}

	// 3. Чувствительность персонажа.
	stimulus *= in.Traits.Sensitivity

	// 5. Анти-спам: точный повтор в окне обнуляет вклад сообщения;
	// короткие малосодержательные сообщения демпфируются только в плюс
	// (негатив никогда не смягчается). Флирт-класс освобожден от демпфера.
	throttled := false
	if e.isRepeat(st, hash, in.Now) {
		stimulus = 0
		throttled = true
	} else if stimulus > 0 &&
		!in.Intent.Category.IsFlirtation() &&
		utf8.RuneCountInString(in.Message) < e.cfg.ShortMessageRunes {
		stimulus *= e.cfg.ShortMessageFactor
		throttled = true
	}

	// Бонус верифицированного триггера и дельта генератора.
	switch in.TriggerType {
	case domain.TriggerVerifiedApology:
		stimulus += e.cfg.ApologyRecoveryBonus * in.Traits.ForgivenessRate
	case domain.TriggerVerifiedGift:
		stimulus += e.cfg.GiftRecoveryBonus
	}
	stimulus += in.GeneratorDelta

	// 4. Замок холодной войны: обычные стимулы не могут поднимать счет,
	// только allow-listed триггеры.
	if st.ColdWar && !in.TriggerType.AllowedInColdWar() && stimulus > 0 {
		stimulus = 0
	}

	// 6. Decay к нулю и жесткие границы.
	newScore := clampScore(st.EmotionScore*e.cfg.DecayFactor + stimulus)

	// 7. Пересчет полосы и инварианта холодной войны.
	oldBand := domain.BandForScore(st.EmotionScore)
	newBand := domain.BandForScore(newScore)
	oldCold := st.EmotionScore <= domain.ColdWarThreshold
	newCold := newScore <= domain.ColdWarThreshold

	return Result{
		OldScore:       st.EmotionScore,
		NewScore:       newScore,
		OldBand:        oldBand,
		NewBand:        newBand,
		ColdWarEntered: !oldCold && newCold,
		ColdWarExited:  oldCold && !newCold,
		Stimulus:       stimulus,
		SpamThrottled:  throttled,
		MessageHash:    hash,
	}
}

// Commit применяет результат к состоянию. Вызывается сервисом хода внутри
// атомарного коммита; сам по себе ничего не сохраняет.
func (e *Engine) Commit(st *domain.RelationshipState, res Result, now time.Time) {
	st.EmotionScore = res.NewScore
	st.EmotionState = res.NewBand
	st.ColdWar = res.NewScore <= domain.ColdWarThreshold
	st.PushMessageStamp(domain.MessageStamp{Hash: res.MessageHash, At: now})
	st.LastInteractionAt = now

	if res.ColdWarEntered || res.ColdWarExited {
		e.logger.Info("cold war transition",
			zap.Bool("cold_war", st.ColdWar),
			zap.Float64("score", st.EmotionScore))
	}
}

// isRepeat проверяет точный повтор сообщения в анти-спам окне.
func (e *Engine) isRepeat(st *domain.RelationshipState, hash string, now time.Time) bool {
	for _, stamp := range st.RecentMessages {
		if stamp.Hash == hash && now.Sub(stamp.At) <= e.cfg.SpamWindow {
			return true
		}
	}
	return false
}

func clampScore(v float64) float64 {
	if v > domain.EmotionScoreMax {
		return domain.EmotionScoreMax
	}
	if v < domain.EmotionScoreMin {
		return domain.EmotionScoreMin
	}
	return v
}
