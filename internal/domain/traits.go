package domain

import "github.com/google/uuid"

// Archetype выбирает статический граф событий и профиль черт персонажа.
type Archetype string

const (
	ArchetypeStandard   Archetype = "standard"
	ArchetypePermissive Archetype = "permissive"
	ArchetypeReserved   Archetype = "reserved"
)

// Valid сообщает, известен ли архетип.
func (a Archetype) Valid() bool {
	switch a {
	case ArchetypeStandard, ArchetypePermissive, ArchetypeReserved:
		return true
	}
	return false
}

// CharacterTraits - статические черты персонажа. Оси purity/chaos/pride/greed
// лежат в [0, 100]; Sensitivity и ForgivenessRate - множители вокруг 1.0.
type CharacterTraits struct {
	CharacterID uuid.UUID `json:"character_id"`

	Purity float64 `json:"purity"`
	Chaos  float64 `json:"chaos"`
	Pride  float64 `json:"pride"`
	Greed  float64 `json:"greed"`

	Sensitivity     float64 `json:"sensitivity"`      // множитель силы стимулов
	ForgivenessRate float64 `json:"forgiveness_rate"` // множитель восстанавливающих триггеров

	// BoundaryStrictness (0..100) задает "стену френдзоны": насколько
	// трудные романтические/явные запросы персонаж отвергает безусловно,
	// пока не разблокирован его ключевой рубеж (см. events).
	BoundaryStrictness float64 `json:"boundary_strictness"`

	Archetype Archetype `json:"archetype"`
}

// DefaultTraits возвращает профиль черт по умолчанию для архетипа.
// Используется при ленивом создании, когда у персонажа еще нет строки в БД.
func DefaultTraits(characterID uuid.UUID, archetype Archetype) CharacterTraits {
	t := CharacterTraits{
		CharacterID:        characterID,
		Purity:             20,
		Chaos:              15,
		Pride:              30,
		Greed:              10,
		Sensitivity:        1.0,
		ForgivenessRate:    1.0,
		BoundaryStrictness: 40,
		Archetype:          archetype,
	}
	switch archetype {
	case ArchetypePermissive:
		t.Purity = 5
		t.Chaos = 35
		t.BoundaryStrictness = 10
	case ArchetypeReserved:
		t.Purity = 45
		t.Pride = 50
		t.ForgivenessRate = 0.7
		t.BoundaryStrictness = 70
	}
	return t
}
