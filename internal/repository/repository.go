package repository

import (
	"context"

	"github.com/google/uuid"

	"companion-server/internal/domain"
)

// RelationshipStateRepository - хранилище состояний пар (пользователь,
// персонаж). Реализация обязана обеспечивать атомарность Save: конкурентный
// второй ход той же пары видит либо полностью старое, либо полностью новое
// состояние.
type RelationshipStateRepository interface {
	// Get возвращает состояние пары или domain.ErrStateNotFound.
	// Возвращаемое значение - копия: мутации вызывающего кода не видны
	// хранилищу до Save.
	Get(ctx context.Context, userID, characterID uuid.UUID) (*domain.RelationshipState, error)

	// Save атомарно записывает состояние, если его версия в хранилище
	// все еще равна expectedVersion (optimistic compare-and-commit).
	// При расхождении возвращает domain.ErrVersionConflict и ничего не
	// меняет. Для нового состояния expectedVersion = 0.
	Save(ctx context.Context, st *domain.RelationshipState, expectedVersion int64) error

	// Delete выполняет явное внешнее стирание данных пары. Единственный
	// путь, которым unlocked_events может уменьшиться.
	Delete(ctx context.Context, userID, characterID uuid.UUID) error

	// AppendTurnRecord добавляет запись аудита завершенного хода.
	AppendTurnRecord(ctx context.Context, rec *domain.TurnRecord) error
}

// CharacterTraitsRepository - хранилище статических черт персонажей.
type CharacterTraitsRepository interface {
	// GetTraits возвращает черты персонажа или domain.ErrTraitsNotFound.
	GetTraits(ctx context.Context, characterID uuid.UUID) (domain.CharacterTraits, error)
}
