package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"companion-server/internal/directive"
	"companion-server/internal/domain"
	"companion-server/internal/emotion"
	"companion-server/internal/events"
	"companion-server/internal/intimacy"
	"companion-server/internal/metrics"
	"companion-server/internal/parser"
	"companion-server/internal/repository"
)

// IntentClassifier - контракт классификатора намерений. Реализация на
// правилах заменяема на модельную без изменения нижележащих компонентов.
type IntentClassifier interface {
	Classify(message string) domain.IntentResult
}

// Generator - контракт внешнего генератора текста. Вызов может занимать
// секунды и является единственной точкой подвеса хода.
type Generator interface {
	Generate(ctx context.Context, directive string, history []domain.ChatMessage) (string, error)
}

// Config - параметры сервиса хода.
type Config struct {
	// MaxCommitRetries - число повторов optimistic-коммита при конфликте
	// версий, прежде чем ход завершится ошибкой.
	MaxCommitRetries int
	// XPBase и XPDifficultyRate задают начисление XP за удовлетворенный ход.
	XPBase           float64
	XPDifficultyRate float64
	// MilestoneXPFactor - множитель XP за первое срабатывание рубежа.
	MilestoneXPFactor float64
}

// DefaultConfig возвращает параметры по умолчанию.
func DefaultConfig() Config {
	return Config{
		MaxCommitRetries:  3,
		XPBase:            5,
		XPDifficultyRate:  0.3,
		MilestoneXPFactor: 2,
	}
}

// situationalBuffs - вклад верифицированных триггеров в ситуативный бафф
// формулы Power (действует один ход).
var situationalBuffs = map[domain.TriggerType]float64{
	domain.TriggerVerifiedGift:    10,
	domain.TriggerVerifiedApology: 5,
}

// TurnService - единственная входная точка ядра: один вызов ProcessTurn
// на одно сообщение пользователя. Поток хода: классификация -> гейт ->
// директива -> внешняя генерация -> валидация -> атомарный коммит
// эмоции, XP и событий.
type TurnService struct {
	stateRepo  repository.RelationshipStateRepository
	traitsRepo repository.CharacterTraitsRepository
	classifier IntentClassifier
	gen        Generator

	emotionEngine *emotion.Engine
	ledger        *intimacy.Ledger
	evaluator     *intimacy.Evaluator
	builder       *directive.Builder
	respParser    *parser.Parser

	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewTurnService создает сервис хода.
func NewTurnService(
	stateRepo repository.RelationshipStateRepository,
	traitsRepo repository.CharacterTraitsRepository,
	classifier IntentClassifier,
	gen Generator,
	emotionEngine *emotion.Engine,
	ledger *intimacy.Ledger,
	evaluator *intimacy.Evaluator,
	builder *directive.Builder,
	respParser *parser.Parser,
	cfg Config,
	logger *zap.Logger,
) *TurnService {
	if cfg.MaxCommitRetries <= 0 {
		cfg.MaxCommitRetries = DefaultConfig().MaxCommitRetries
	}
	if cfg.XPBase <= 0 {
		cfg.XPBase = DefaultConfig().XPBase
	}
	if cfg.MilestoneXPFactor <= 0 {
		cfg.MilestoneXPFactor = DefaultConfig().MilestoneXPFactor
	}
	return &TurnService{
		stateRepo:     stateRepo,
		traitsRepo:    traitsRepo,
		classifier:    classifier,
		gen:           gen,
		emotionEngine: emotionEngine,
		ledger:        ledger,
		evaluator:     evaluator,
		builder:       builder,
		respParser:    respParser,
		cfg:           cfg,
		logger:        logger.Named("TurnService"),
		now:           time.Now,
	}
}

// ProcessTurn обрабатывает один ход пары (пользователь, персонаж).
//
// Состояние читается ДО вызова генерации и коммитится атомарно ПОСЛЕ нее;
// никакая блокировка по паре через точку подвеса не удерживается. Отмена
// или таймаут генерации прерывает ход без каких-либо мутаций.
//
// Политика отказа (выбрана явно, см. DESIGN.md): отказанный гейтом ход
// коммитит эмоциональную дельту и XP сообщения, но не записывает рубежные
// события и не удваивает рубежный XP. Начисление XP при отказе нужно,
// чтобы свежая пара вообще могла дорасти до порога Power.
func (s *TurnService) ProcessTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error) {
	if req.Message == "" {
		return nil, domain.ErrEmptyMessage
	}
	if req.UserID == uuid.Nil || req.CharacterID == uuid.Nil {
		return nil, fmt.Errorf("%w: user and character IDs are required", domain.ErrInvalidInput)
	}

	now := s.now()

	traits, err := s.traitsRepo.GetTraits(ctx, req.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения черт персонажа: %w", err)
	}

	pre, err := s.loadOrInitState(ctx, req.UserID, req.CharacterID, now)
	if err != nil {
		return nil, err
	}

	// Классификация: чистая, детерминированная, без I/O.
	intentRes := s.classifier.Classify(req.Message)

	// Гейт читает состояние ДО хода.
	stage := s.evaluator.Stage(pre)
	powerRes := s.evaluator.Evaluate(intimacy.PowerInput{
		State:           pre,
		Traits:          traits,
		Intent:          intentRes,
		SituationalBuff: situationalBuffs[req.TriggerType],
	})

	chain := events.ChainForArchetype(traits.Archetype)
	eventID := events.EventForCategory(intentRes.Category)

	refused := !powerRes.Passed
	reason := powerRes.RefusalReason

	// Рубежный запрос, прошедший по Power, но не готовый по DAG
	// (пререквизиты/фаза), отклоняется: отношения еще не там.
	if !refused && eventID != "" && !pre.HasEvent(eventID) && !chain.CanTrigger(eventID, pre, stage) {
		refused = true
		reason = domain.RefusalFriendzoneWall
	}

	// Проспективное состояние для директивы: рубеж, срабатывающий этим
	// ходом, уже учитывается в ограничениях генерации.
	prospective := pre.Clone()
	if !refused && eventID != "" {
		chain.RecordEvent(eventID, prospective)
	}

	dir := s.builder.Build(directive.Input{
		State:   prospective,
		Traits:  traits,
		Stage:   stage,
		Intent:  intentRes,
		Power:   powerRes,
		Refused: refused,
		Reason:  reason,
	})

	// Единственная точка подвеса. Сбой или таймаут - ход прерван,
	// состояние не тронуто, вызывающий может безопасно повторить.
	genStart := s.now()
	raw, err := s.gen.Generate(ctx, dir.Text, []domain.ChatMessage{{Role: "user", Content: req.Message}})
	metrics.GenerationDuration.Observe(s.now().Sub(genStart).Seconds())
	if err != nil {
		metrics.GenerationFailuresTotal.Inc()
		metrics.TurnsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("turn aborted: generation unavailable",
			zap.Error(err),
			zap.String("userID", req.UserID.String()),
			zap.String("characterID", req.CharacterID.String()))
		return nil, err
	}

	parsed := s.respParser.Parse(raw)
	degraded := !parsed.ParseSuccess
	if degraded {
		metrics.ParseDegradedTotal.Inc()
		s.logger.Warn("generator reply degraded to best-effort text",
			zap.Int("raw_len", len(raw)))
	}
	if parsed.Repaired {
		metrics.ParseRepairedTotal.Inc()
	}

	// Атомарный коммит с повтором при конфликте версий: дельты хода
	// применяются заново к свежему состоянию.
	st, triggered, record, err := s.commitTurn(ctx, req, pre, traits, intentRes, parsed, refused, now)
	if err != nil {
		return nil, err
	}

	record.Refused = refused
	record.Refusal = reason
	record.Degraded = degraded
	if err := s.stateRepo.AppendTurnRecord(ctx, record); err != nil {
		// Аудит не должен ронять завершенный ход.
		s.logger.Warn("failed to append turn record", zap.Error(err))
	}

	switch {
	case refused:
		metrics.TurnsTotal.WithLabelValues("refused").Inc()
		metrics.GateRefusalsTotal.WithLabelValues(string(reason)).Inc()
	case degraded:
		metrics.TurnsTotal.WithLabelValues("degraded").Inc()
	default:
		metrics.TurnsTotal.WithLabelValues("ok").Inc()
	}

	return &domain.TurnResult{
		ReplyText:       parsed.Reply,
		NewState:        st,
		TriggeredEvents: triggered,
		Refused:         refused,
		RefusalReason:   reason,
		Degraded:        degraded,
	}, nil
}

// EraseState выполняет явное внешнее стирание данных пары. Единственный
// способ уменьшить unlocked_events.
func (s *TurnService) EraseState(ctx context.Context, userID, characterID uuid.UUID) error {
	return s.stateRepo.Delete(ctx, userID, characterID)
}

// commitTurn применяет дельты хода к состоянию и сохраняет его атомарно.
// При конфликте версий перечитывает состояние и повторяет применение.
func (s *TurnService) commitTurn(
	ctx context.Context,
	req domain.TurnRequest,
	loaded *domain.RelationshipState,
	traits domain.CharacterTraits,
	intentRes domain.IntentResult,
	parsed domain.ParsedResponse,
	refused bool,
	now time.Time,
) (*domain.RelationshipState, []string, *domain.TurnRecord, error) {
	chain := events.ChainForArchetype(traits.Archetype)
	eventID := events.EventForCategory(intentRes.Category)

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxCommitRetries; attempt++ {
		st := loaded.Clone()
		baseVersion := st.Version

		emotionRes := s.emotionEngine.Evaluate(emotion.Input{
			State:          st,
			Intent:         intentRes,
			Traits:         traits,
			Message:        req.Message,
			TriggerType:    req.TriggerType,
			GeneratorDelta: float64(parsed.EmotionDelta),
			Now:            now,
		})
		s.emotionEngine.Commit(st, emotionRes, now)

		var triggered []string
		newMilestone := !refused && eventID != "" && !st.HasEvent(eventID)
		amount := s.cfg.XPBase + intentRes.Difficulty*s.cfg.XPDifficultyRate
		if newMilestone {
			amount *= s.cfg.MilestoneXPFactor
		}
		grant := s.ledger.Grant(st, amount, now)
		xpGranted := grant.Applied

		if !refused && eventID != "" && chain.RecordEvent(eventID, st) {
			triggered = append(triggered, eventID)
		}

		err := s.stateRepo.Save(ctx, st, baseVersion)
		if err == nil {
			record := &domain.TurnRecord{
				ID:          uuid.New(),
				UserID:      req.UserID,
				CharacterID: req.CharacterID,
				Category:    intentRes.Category,
				Stimulus:    emotionRes.Stimulus,
				OldScore:    emotionRes.OldScore,
				NewScore:    emotionRes.NewScore,
				XPGranted:   xpGranted,
				Events:      triggered,
				CreatedAt:   now,
			}
			return st, triggered, record, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, nil, nil, fmt.Errorf("ошибка коммита хода: %w", err)
		}

		// Конкурентный ход той же пары успел первым: перечитываем и
		// применяем дельты заново.
		metrics.CommitConflictsTotal.Inc()
		lastErr = err
		loaded, err = s.loadOrInitState(ctx, req.UserID, req.CharacterID, now)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return nil, nil, nil, fmt.Errorf("коммит хода не удался после %d попыток: %w", s.cfg.MaxCommitRetries, lastErr)
}

// loadOrInitState читает состояние пары, лениво создавая дефолтное.
func (s *TurnService) loadOrInitState(ctx context.Context, userID, characterID uuid.UUID, now time.Time) (*domain.RelationshipState, error) {
	st, err := s.stateRepo.Get(ctx, userID, characterID)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, domain.ErrStateNotFound) {
		return domain.NewRelationshipState(userID, characterID, now), nil
	}
	return nil, fmt.Errorf("ошибка загрузки состояния пары: %w", err)
}
