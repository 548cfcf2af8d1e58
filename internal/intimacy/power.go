package intimacy

import (
	"go.uber.org/zap"

	"companion-server/internal/domain"
	"companion-server/internal/events"
)

// PassThreshold - порог прохождения гейта. Равенство проходит.
const PassThreshold = 60.0

// stageMaxDifficulty ограничивает, какую трудность запроса допускает фаза
// отношений, независимо от численного Power.
var stageMaxDifficulty = map[domain.Stage]float64{
	domain.StageStranger:     30,
	domain.StageAcquaintance: 45,
	domain.StageFriend:       60,
	domain.StageRomance:      80,
	domain.StageIntimate:     100,
}

// PowerInput - входные данные вычисления гейта. Читает состояние ДО хода.
type PowerInput struct {
	State           *domain.RelationshipState
	Traits          domain.CharacterTraits
	Intent          domain.IntentResult
	SituationalBuff float64
}

// Evaluator объединяет эмоцию, близость и оси черт персонажа в один
// гейтирующий скаляр и применяет жесткие границы поверх него.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator создает вычислитель.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{logger: logger.Named("PowerEvaluator")}
}

// Evaluate вычисляет PowerResult. Порядок проверок: жесткая граница
// безопасности -> стена френдзоны -> потолок фазы -> численный Power.
// Стена и потолок срабатывают независимо от величины Power.
func (ev *Evaluator) Evaluate(in PowerInput) domain.PowerResult {
	intimacyVal := IntimacyForLevel(in.State.Level)
	stage := StageForLevel(in.State.Level)

	power := intimacyVal*0.5 + in.State.EmotionScore*0.5 +
		in.Traits.Chaos - in.Traits.Purity + in.SituationalBuff

	res := domain.PowerResult{PowerValue: power}

	// Жесткая граница: заблокированный вход никогда не проходит.
	if in.Intent.SafetyFlag == domain.SafetyBlock {
		res.RefusalReason = domain.RefusalHardBoundary
		return res
	}

	// Стена френдзоны: безусловный отказ романтике/явному контенту выше
	// персонажного порога, пока не разблокирован обходной рубеж архетипа.
	if ev.friendzoneWalled(in) {
		res.RefusalReason = domain.RefusalFriendzoneWall
		return res
	}

	// Потолок фазы: трудность запроса не может превышать допустимую для
	// текущей фазы отношений.
	if in.Intent.Difficulty > stageMaxDifficulty[stage] {
		res.RefusalReason = domain.RefusalHardBoundary
		return res
	}

	if power < PassThreshold {
		res.RefusalReason = domain.RefusalLowPower
		return res
	}

	res.Passed = true
	res.RefusalReason = domain.RefusalNone
	return res
}

// friendzoneWalled применяет "стену": порог в единицах трудности,
// производный от BoundaryStrictness. Не зависит от Power; моделирует
// непреодолимую черту характера до ключевого рубежа.
func (ev *Evaluator) friendzoneWalled(in PowerInput) bool {
	if !in.Intent.Category.IsRomantic() {
		return false
	}
	chain := events.ChainForArchetype(in.Traits.Archetype)
	if in.State.HasEvent(chain.WallBypassEvent) {
		return false
	}
	wallThreshold := 100 - in.Traits.BoundaryStrictness
	return in.Intent.Difficulty >= wallThreshold
}

// Stage возвращает текущую фазу пары (удобство для сервиса хода).
func (ev *Evaluator) Stage(st *domain.RelationshipState) domain.Stage {
	return StageForLevel(st.Level)
}
