package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"companion-server/internal/domain"
)

// Mock RelationshipStateRepository
type RelationshipStateRepository struct {
	mock.Mock
}

func (m *RelationshipStateRepository) Get(ctx context.Context, userID, characterID uuid.UUID) (*domain.RelationshipState, error) {
	args := m.Called(ctx, userID, characterID)
	st, _ := args.Get(0).(*domain.RelationshipState)
	return st, args.Error(1)
}
func (m *RelationshipStateRepository) Save(ctx context.Context, st *domain.RelationshipState, expectedVersion int64) error {
	args := m.Called(ctx, st, expectedVersion)
	return args.Error(0)
}
func (m *RelationshipStateRepository) Delete(ctx context.Context, userID, characterID uuid.UUID) error {
	args := m.Called(ctx, userID, characterID)
	return args.Error(0)
}
func (m *RelationshipStateRepository) AppendTurnRecord(ctx context.Context, rec *domain.TurnRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// Mock CharacterTraitsRepository
type CharacterTraitsRepository struct {
	mock.Mock
}

func (m *CharacterTraitsRepository) GetTraits(ctx context.Context, characterID uuid.UUID) (domain.CharacterTraits, error) {
	args := m.Called(ctx, characterID)
	traits, _ := args.Get(0).(domain.CharacterTraits)
	return traits, args.Error(1)
}

// Mock Generator
type Generator struct {
	mock.Mock
}

func (m *Generator) Generate(ctx context.Context, directive string, history []domain.ChatMessage) (string, error) {
	args := m.Called(ctx, directive, history)
	return args.String(0), args.Error(1)
}
