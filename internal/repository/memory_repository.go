package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"companion-server/internal/domain"
)

// pairKey - ключ пары в in-memory хранилище.
type pairKey struct {
	userID      uuid.UUID
	characterID uuid.UUID
}

// Compile-time check
var _ RelationshipStateRepository = (*MemoryStateRepository)(nil)

// MemoryStateRepository - явное in-memory хранилище за общим интерфейсом.
// Используется в тестах и локальной разработке; семантика Save идентична
// Postgres-реализации (optimistic compare-and-commit по версии).
type MemoryStateRepository struct {
	mu      sync.RWMutex
	states  map[pairKey]*domain.RelationshipState
	records []*domain.TurnRecord
}

// NewMemoryStateRepository создает пустое хранилище.
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{
		states: make(map[pairKey]*domain.RelationshipState),
	}
}

// Get возвращает глубокую копию состояния пары.
func (r *MemoryStateRepository) Get(_ context.Context, userID, characterID uuid.UUID) (*domain.RelationshipState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.states[pairKey{userID, characterID}]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return st.Clone(), nil
}

// Save записывает копию состояния при совпадении версии.
func (r *MemoryStateRepository) Save(_ context.Context, st *domain.RelationshipState, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{st.UserID, st.CharacterID}
	existing, ok := r.states[key]
	if !ok {
		if expectedVersion != 0 {
			return domain.ErrVersionConflict
		}
	} else if existing.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	cp := st.Clone()
	cp.Version = expectedVersion + 1
	r.states[key] = cp
	st.Version = cp.Version
	return nil
}

// Delete стирает состояние пары (явное внешнее стирание данных).
func (r *MemoryStateRepository) Delete(_ context.Context, userID, characterID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, pairKey{userID, characterID})
	return nil
}

// AppendTurnRecord добавляет запись аудита.
func (r *MemoryStateRepository) AppendTurnRecord(_ context.Context, rec *domain.TurnRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// TurnRecords возвращает записи аудита (для тестов).
func (r *MemoryStateRepository) TurnRecords() []*domain.TurnRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*domain.TurnRecord(nil), r.records...)
}

// Compile-time check
var _ CharacterTraitsRepository = (*MemoryTraitsRepository)(nil)

// MemoryTraitsRepository - in-memory реализация хранилища черт.
type MemoryTraitsRepository struct {
	mu     sync.RWMutex
	traits map[uuid.UUID]domain.CharacterTraits
}

// NewMemoryTraitsRepository создает хранилище с заданными профилями.
func NewMemoryTraitsRepository() *MemoryTraitsRepository {
	return &MemoryTraitsRepository{traits: make(map[uuid.UUID]domain.CharacterTraits)}
}

// Put добавляет или заменяет профиль персонажа.
func (r *MemoryTraitsRepository) Put(t domain.CharacterTraits) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traits[t.CharacterID] = t
}

// GetTraits возвращает профиль персонажа.
func (r *MemoryTraitsRepository) GetTraits(_ context.Context, characterID uuid.UUID) (domain.CharacterTraits, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.traits[characterID]
	if !ok {
		return domain.CharacterTraits{}, domain.ErrTraitsNotFound
	}
	return t, nil
}
