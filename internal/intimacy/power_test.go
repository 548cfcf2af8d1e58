package intimacy_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"companion-server/internal/domain"
	"companion-server/internal/events"
	"companion-server/internal/intimacy"
)

func statePowerFixture(level int, emotionScore float64) *domain.RelationshipState {
	st := domain.NewRelationshipState(uuid.New(), uuid.New(), time.Now())
	st.Level = level
	st.EmotionScore = emotionScore
	st.EmotionState = domain.BandForScore(emotionScore)
	return st
}

// neutralTraits обнуляет оси, чтобы проверять чистую формулу Power.
func neutralTraits() domain.CharacterTraits {
	t := domain.DefaultTraits(uuid.New(), domain.ArchetypeStandard)
	t.Purity = 0
	t.Chaos = 0
	return t
}

func TestEvaluatePowerFormula(t *testing.T) {
	ev := intimacy.NewEvaluator(zap.NewNop())

	t.Run("exact threshold passes", func(t *testing.T) {
		// intimacy(55)=80, emotion 40: power = 40 + 20 = 60
		res := ev.Evaluate(intimacy.PowerInput{
			State:  statePowerFixture(55, 40),
			Traits: neutralTraits(),
			Intent: domain.IntentResult{Category: domain.CategorySmallTalk, Difficulty: 10, SafetyFlag: domain.SafetySafe},
		})

		assert.InDelta(t, 60.0, res.PowerValue, 0.001)
		assert.True(t, res.Passed)
		assert.Equal(t, domain.RefusalNone, res.RefusalReason)
	})

	t.Run("just below the threshold is refused", func(t *testing.T) {
		res := ev.Evaluate(intimacy.PowerInput{
			State:  statePowerFixture(55, 39.8),
			Traits: neutralTraits(),
			Intent: domain.IntentResult{Category: domain.CategorySmallTalk, Difficulty: 10, SafetyFlag: domain.SafetySafe},
		})

		assert.InDelta(t, 59.9, res.PowerValue, 0.001)
		assert.False(t, res.Passed)
		assert.Equal(t, domain.RefusalLowPower, res.RefusalReason)
	})

	t.Run("chaos raises and purity lowers the scalar", func(t *testing.T) {
		traits := neutralTraits()
		traits.Chaos = 30
		traits.Purity = 10

		res := ev.Evaluate(intimacy.PowerInput{
			State:  statePowerFixture(55, 40),
			Traits: traits,
			Intent: domain.IntentResult{Category: domain.CategorySmallTalk, Difficulty: 10, SafetyFlag: domain.SafetySafe},
		})

		assert.InDelta(t, 80.0, res.PowerValue, 0.001)
	})

	t.Run("situational buff contributes for one turn", func(t *testing.T) {
		res := ev.Evaluate(intimacy.PowerInput{
			State:           statePowerFixture(55, 39.8),
			Traits:          neutralTraits(),
			Intent:          domain.IntentResult{Category: domain.CategorySmallTalk, Difficulty: 10, SafetyFlag: domain.SafetySafe},
			SituationalBuff: 10,
		})

		assert.True(t, res.Passed)
	})
}

func TestEvaluatePowerHardBoundaries(t *testing.T) {
	ev := intimacy.NewEvaluator(zap.NewNop())

	t.Run("safety block refuses regardless of power", func(t *testing.T) {
		traits := neutralTraits()
		traits.Chaos = 100

		res := ev.Evaluate(intimacy.PowerInput{
			State:  statePowerFixture(100, 100),
			Traits: traits,
			Intent: domain.IntentResult{Category: domain.CategorySmallTalk, Difficulty: 10, SafetyFlag: domain.SafetyBlock},
		})

		assert.False(t, res.Passed)
		assert.Equal(t, domain.RefusalHardBoundary, res.RefusalReason)
	})

	t.Run("stage ceiling refuses independent of power", func(t *testing.T) {
		// stranger stage caps difficulty at 30; inflated power does not help
		traits := neutralTraits()
		traits.Chaos = 80

		res := ev.Evaluate(intimacy.PowerInput{
			State:  statePowerFixture(0, 0),
			Traits: traits,
			Intent: domain.IntentResult{Category: domain.CategoryDateRequest, Difficulty: 55, SafetyFlag: domain.SafetySafe},
		})

		assert.False(t, res.Passed)
		assert.Equal(t, domain.RefusalHardBoundary, res.RefusalReason)
	})
}

func TestEvaluateFriendzoneWall(t *testing.T) {
	ev := intimacy.NewEvaluator(zap.NewNop())

	// standard archetype: strictness 40, wall at difficulty 60, bypass on confession
	traits := domain.DefaultTraits(uuid.New(), domain.ArchetypeStandard)
	traits.Purity = 0
	traits.Chaos = 20

	kiss := domain.IntentResult{Category: domain.CategoryKissRequest, Difficulty: 70, SafetyFlag: domain.SafetySafe}

	t.Run("romantic request above the wall is refused before the bypass milestone", func(t *testing.T) {
		res := ev.Evaluate(intimacy.PowerInput{
			State:  statePowerFixture(30, 100),
			Traits: traits,
			Intent: kiss,
		})

		assert.False(t, res.Passed)
		assert.Equal(t, domain.RefusalFriendzoneWall, res.RefusalReason)
	})

	t.Run("the bypass milestone dissolves the wall", func(t *testing.T) {
		st := statePowerFixture(30, 100)
		st.AddEvent(events.EventConfession)

		res := ev.Evaluate(intimacy.PowerInput{
			State:  st,
			Traits: traits,
			Intent: kiss,
		})

		assert.True(t, res.Passed)
	})

	t.Run("non-romantic requests never hit the wall", func(t *testing.T) {
		res := ev.Evaluate(intimacy.PowerInput{
			State:  statePowerFixture(30, 100),
			Traits: traits,
			Intent: domain.IntentResult{Category: domain.CategoryDemand, Difficulty: 70, SafetyFlag: domain.SafetySafe},
		})

		assert.NotEqual(t, domain.RefusalFriendzoneWall, res.RefusalReason)
	})

	t.Run("below the wall threshold romance is allowed through", func(t *testing.T) {
		res := ev.Evaluate(intimacy.PowerInput{
			State:  statePowerFixture(30, 100),
			Traits: traits,
			Intent: domain.IntentResult{Category: domain.CategoryFlirt, Difficulty: 40, SafetyFlag: domain.SafetySafe},
		})

		assert.True(t, res.Passed)
	})
}

func TestEvaluatorStage(t *testing.T) {
	ev := intimacy.NewEvaluator(zap.NewNop())

	assert.Equal(t, domain.StageStranger, ev.Stage(statePowerFixture(0, 0)))
	assert.Equal(t, domain.StageRomance, ev.Stage(statePowerFixture(30, 0)))
}
