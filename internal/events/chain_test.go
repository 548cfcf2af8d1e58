package events_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"companion-server/internal/domain"
	"companion-server/internal/events"
)

func newChainState() *domain.RelationshipState {
	return domain.NewRelationshipState(uuid.New(), uuid.New(), time.Now())
}

func TestChainForArchetype(t *testing.T) {
	assert.Equal(t, events.EventConfession, events.ChainForArchetype(domain.ArchetypeStandard).WallBypassEvent)
	assert.Equal(t, events.EventFirstDate, events.ChainForArchetype(domain.ArchetypePermissive).WallBypassEvent)
	assert.Equal(t, events.EventFirstKiss, events.ChainForArchetype(domain.ArchetypeReserved).WallBypassEvent)

	// Неизвестный архетип получает standard.
	assert.Equal(t, events.EventConfession, events.ChainForArchetype(domain.Archetype("weird")).WallBypassEvent)
}

func TestEventForCategory(t *testing.T) {
	assert.Equal(t, events.EventFirstDate, events.EventForCategory(domain.CategoryDateRequest))
	assert.Equal(t, events.EventConfession, events.EventForCategory(domain.CategoryLoveConfession))
	assert.Equal(t, events.EventFirstKiss, events.EventForCategory(domain.CategoryKissRequest))
	assert.Equal(t, events.EventFirstNSFW, events.EventForCategory(domain.CategoryNSFWRequest))
	assert.Empty(t, events.EventForCategory(domain.CategorySmallTalk))
}

func TestStandardChainPrerequisites(t *testing.T) {
	chain := events.ChainForArchetype(domain.ArchetypeStandard)
	st := newChainState()

	t.Run("confession is blocked until the first date", func(t *testing.T) {
		assert.False(t, chain.CanTrigger(events.EventConfession, st, domain.StageRomance))

		chain.RecordEvent(events.EventFirstDate, st)
		assert.True(t, chain.CanTrigger(events.EventConfession, st, domain.StageRomance))
	})

	t.Run("stage gating holds even with prerequisites met", func(t *testing.T) {
		assert.False(t, chain.CanTrigger(events.EventConfession, st, domain.StageFriend))
	})

	t.Run("nsfw requires the full chain", func(t *testing.T) {
		assert.False(t, chain.CanTrigger(events.EventFirstNSFW, st, domain.StageIntimate))

		chain.RecordEvent(events.EventConfession, st)
		chain.RecordEvent(events.EventFirstKiss, st)
		assert.True(t, chain.CanTrigger(events.EventFirstNSFW, st, domain.StageIntimate))
	})
}

func TestPermissiveChain(t *testing.T) {
	chain := events.ChainForArchetype(domain.ArchetypePermissive)
	st := newChainState()

	// first_nsfw has no prerequisites, only a stage floor
	assert.False(t, chain.CanTrigger(events.EventFirstNSFW, st, domain.StageFriend))
	assert.True(t, chain.CanTrigger(events.EventFirstNSFW, st, domain.StageRomance))

	// first_date is available from acquaintance on
	assert.False(t, chain.CanTrigger(events.EventFirstDate, st, domain.StageStranger))
	assert.True(t, chain.CanTrigger(events.EventFirstDate, st, domain.StageAcquaintance))
}

func TestReservedChain(t *testing.T) {
	chain := events.ChainForArchetype(domain.ArchetypeReserved)
	st := newChainState()

	// first_nsfw needs first_kiss specifically, not confession
	chain.RecordEvent(events.EventFirstDate, st)
	chain.RecordEvent(events.EventConfession, st)
	assert.False(t, chain.CanTrigger(events.EventFirstNSFW, st, domain.StageIntimate))

	chain.RecordEvent(events.EventFirstKiss, st)
	assert.True(t, chain.CanTrigger(events.EventFirstNSFW, st, domain.StageIntimate))
}

func TestRecordEventIdempotent(t *testing.T) {
	chain := events.ChainForArchetype(domain.ArchetypeStandard)
	st := newChainState()

	assert.True(t, chain.RecordEvent(events.EventFirstDate, st))
	assert.False(t, chain.RecordEvent(events.EventFirstDate, st))
	assert.Equal(t, []string{events.EventFirstDate}, st.UnlockedEvents)

	// Неизвестное событие не записывается.
	assert.False(t, chain.RecordEvent("made_up_event", st))
	assert.Len(t, st.UnlockedEvents, 1)
}

func TestUnlockedOrder(t *testing.T) {
	chain := events.ChainForArchetype(domain.ArchetypeStandard)
	st := newChainState()

	chain.RecordEvent(events.EventFirstKiss, st)
	chain.RecordEvent(events.EventFirstDate, st)

	// Unlocked follows chain definition order, not insertion order.
	assert.Equal(t, []string{events.EventFirstDate, events.EventFirstKiss}, chain.Unlocked(st))
}

func TestDefinitionLookup(t *testing.T) {
	chain := events.ChainForArchetype(domain.ArchetypeStandard)

	def, ok := chain.Definition(events.EventConfession)
	assert.True(t, ok)
	assert.Equal(t, []string{events.EventFirstDate}, def.Prerequisites)

	_, ok = chain.Definition("made_up_event")
	assert.False(t, ok)
}
