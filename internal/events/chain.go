package events

import (
	"companion-server/internal/domain"
)

// Идентификаторы рубежных событий.
const (
	EventFirstDate  = "first_date"
	EventConfession = "confession"
	EventFirstKiss  = "first_kiss"
	EventFirstNSFW  = "first_nsfw"
)

// Definition - статическое описание события: AND-пререквизиты, минимальная
// фаза отношений и опциональный вес триггера.
type Definition struct {
	ID            string
	Prerequisites []string
	MinStage      domain.Stage
	Weight        float64
}

// Chain - цепочка событий одного архетипа: статический DAG рубежей.
// Вариативность архетипов - это выбор одного из трех статических
// определений, не полиморфизм.
type Chain struct {
	archetype domain.Archetype
	defs      map[string]Definition
	order     []string

	// WallBypassEvent - рубеж, после которого "стена френдзоны" персонажа
	// перестает действовать.
	WallBypassEvent string
}

var (
	standardChain = buildChain(domain.ArchetypeStandard, EventConfession, []Definition{
		{ID: EventFirstDate, Prerequisites: nil, MinStage: domain.StageFriend, Weight: 1.0},
		{ID: EventConfession, Prerequisites: []string{EventFirstDate}, MinStage: domain.StageRomance, Weight: 1.0},
		{ID: EventFirstKiss, Prerequisites: []string{EventConfession}, MinStage: domain.StageRomance, Weight: 0.8},
		{ID: EventFirstNSFW, Prerequisites: []string{EventFirstKiss}, MinStage: domain.StageIntimate, Weight: 0.5},
	})

	// У permissive first_nsfw не имеет пререквизитов.
	permissiveChain = buildChain(domain.ArchetypePermissive, EventFirstDate, []Definition{
		{ID: EventFirstDate, Prerequisites: nil, MinStage: domain.StageAcquaintance, Weight: 1.0},
		{ID: EventConfession, Prerequisites: []string{EventFirstDate}, MinStage: domain.StageFriend, Weight: 1.0},
		{ID: EventFirstKiss, Prerequisites: []string{EventFirstDate}, MinStage: domain.StageFriend, Weight: 0.8},
		{ID: EventFirstNSFW, Prerequisites: nil, MinStage: domain.StageRomance, Weight: 0.5},
	})

	// У reserved first_nsfw требует именно first_kiss, минуя confession.
	reservedChain = buildChain(domain.ArchetypeReserved, EventFirstKiss, []Definition{
		{ID: EventFirstDate, Prerequisites: nil, MinStage: domain.StageRomance, Weight: 1.0},
		{ID: EventFirstKiss, Prerequisites: []string{EventFirstDate}, MinStage: domain.StageRomance, Weight: 0.6},
		{ID: EventConfession, Prerequisites: []string{EventFirstKiss}, MinStage: domain.StageIntimate, Weight: 1.0},
		{ID: EventFirstNSFW, Prerequisites: []string{EventFirstKiss}, MinStage: domain.StageIntimate, Weight: 0.3},
	})
)

func buildChain(a domain.Archetype, wallBypass string, defs []Definition) *Chain {
	c := &Chain{
		archetype:       a,
		defs:            make(map[string]Definition, len(defs)),
		order:           make([]string, 0, len(defs)),
		WallBypassEvent: wallBypass,
	}
	for _, d := range defs {
		c.defs[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c
}

// ChainForArchetype возвращает статическую цепочку архетипа. Неизвестный
// архетип получает standard.
func ChainForArchetype(a domain.Archetype) *Chain {
	switch a {
	case domain.ArchetypePermissive:
		return permissiveChain
	case domain.ArchetypeReserved:
		return reservedChain
	default:
		return standardChain
	}
}

// Definition возвращает описание события по id.
func (c *Chain) Definition(eventID string) (Definition, bool) {
	d, ok := c.defs[eventID]
	return d, ok
}

// EventForCategory отображает категорию запроса в рубежное событие,
// которое этот запрос пытается инициировать (пустая строка - не рубеж).
func EventForCategory(cat domain.Category) string {
	switch cat {
	case domain.CategoryDateRequest:
		return EventFirstDate
	case domain.CategoryLoveConfession:
		return EventConfession
	case domain.CategoryKissRequest:
		return EventFirstKiss
	case domain.CategoryNSFWRequest:
		return EventFirstNSFW
	}
	return ""
}

// CanTrigger сообщает, может ли событие сработать: все пререквизиты уже в
// unlocked_events и текущая фаза не ниже минимальной.
func (c *Chain) CanTrigger(eventID string, st *domain.RelationshipState, stage domain.Stage) bool {
	def, ok := c.defs[eventID]
	if !ok {
		return false
	}
	if stage < def.MinStage {
		return false
	}
	for _, prereq := range def.Prerequisites {
		if !st.HasEvent(prereq) {
			return false
		}
	}
	return true
}

// RecordEvent фиксирует событие в состоянии. Идемпотентна: повторная запись
// того же id - no-op. Возвращает true, если событие записано впервые.
func (c *Chain) RecordEvent(eventID string, st *domain.RelationshipState) bool {
	if _, ok := c.defs[eventID]; !ok {
		return false
	}
	return st.AddEvent(eventID)
}

// Unlocked перечисляет уже разблокированные события цепочки в порядке
// определения (для директив).
func (c *Chain) Unlocked(st *domain.RelationshipState) []string {
	out := make([]string, 0, len(c.order))
	for _, id := range c.order {
		if st.HasEvent(id) {
			out = append(out, id)
		}
	}
	return out
}
