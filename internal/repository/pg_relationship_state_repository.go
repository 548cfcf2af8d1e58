package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"companion-server/internal/domain"
)

const (
	relationshipStateFields = `user_id, character_id, emotion_score, emotion_state, cold_war, total_xp, deferred_xp, level, unlocked_events, recent_messages, recent_xp, last_interaction_at, created_at, version`

	getRelationshipStateQuery = `
        SELECT ` + relationshipStateFields + `
        FROM relationship_states
        WHERE user_id = $1 AND character_id = $2
    `
	insertRelationshipStateQuery = `
        INSERT INTO relationship_states
            (user_id, character_id, emotion_score, emotion_state, cold_war, total_xp, deferred_xp, level, unlocked_events, recent_messages, recent_xp, last_interaction_at, created_at, version)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
        ON CONFLICT (user_id, character_id) DO NOTHING
        RETURNING version
    `
	updateRelationshipStateQuery = `
        UPDATE relationship_states SET
            emotion_score = $3,
            emotion_state = $4,
            cold_war = $5,
            total_xp = $6,
            deferred_xp = $7,
            level = $8,
            unlocked_events = $9,
            recent_messages = $10,
            recent_xp = $11,
            last_interaction_at = $12,
            version = version + 1
        WHERE user_id = $1 AND character_id = $2 AND version = $13
        RETURNING version
    `
	deleteRelationshipStateQuery = `DELETE FROM relationship_states WHERE user_id = $1 AND character_id = $2`

	insertTurnRecordQuery = `
        INSERT INTO turn_records
            (id, user_id, character_id, category, stimulus, old_score, new_score, xp_granted, events, refused, refusal, degraded, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `
)

// Compile-time check
var _ RelationshipStateRepository = (*PgRelationshipStateRepository)(nil)

// PgRelationshipStateRepository - Postgres-реализация хранилища состояний.
// Атомарность коммита хода обеспечивается условием version = $n в UPDATE:
// проигравший гонку писатель получает domain.ErrVersionConflict.
type PgRelationshipStateRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgRelationshipStateRepository создает репозиторий.
func NewPgRelationshipStateRepository(pool *pgxpool.Pool, logger *zap.Logger) *PgRelationshipStateRepository {
	return &PgRelationshipStateRepository{
		pool:   pool,
		logger: logger.Named("PgStateRepo"),
	}
}

// Get возвращает состояние пары или domain.ErrStateNotFound.
func (r *PgRelationshipStateRepository) Get(ctx context.Context, userID, characterID uuid.UUID) (*domain.RelationshipState, error) {
	row := r.pool.QueryRow(ctx, getRelationshipStateQuery, userID, characterID)

	var st domain.RelationshipState
	var eventsJSON, messagesJSON, xpJSON []byte
	err := row.Scan(
		&st.UserID, &st.CharacterID,
		&st.EmotionScore, &st.EmotionState, &st.ColdWar,
		&st.TotalXP, &st.DeferredXP, &st.Level,
		&eventsJSON, &messagesJSON, &xpJSON,
		&st.LastInteractionAt, &st.CreatedAt, &st.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStateNotFound
		}
		r.logger.Error("failed to get relationship state", zap.Error(err),
			zap.String("userID", userID.String()), zap.String("characterID", characterID.String()))
		return nil, fmt.Errorf("ошибка чтения состояния пары: %w", err)
	}

	if err := json.Unmarshal(eventsJSON, &st.UnlockedEvents); err != nil {
		return nil, fmt.Errorf("ошибка десериализации unlocked_events: %w", err)
	}
	if err := json.Unmarshal(messagesJSON, &st.RecentMessages); err != nil {
		return nil, fmt.Errorf("ошибка десериализации recent_messages: %w", err)
	}
	if err := json.Unmarshal(xpJSON, &st.RecentXP); err != nil {
		return nil, fmt.Errorf("ошибка десериализации recent_xp: %w", err)
	}
	return &st, nil
}

// Save атомарно записывает состояние (optimistic compare-and-commit).
func (r *PgRelationshipStateRepository) Save(ctx context.Context, st *domain.RelationshipState, expectedVersion int64) error {
	eventsJSON, err := json.Marshal(st.UnlockedEvents)
	if err != nil {
		return fmt.Errorf("ошибка сериализации unlocked_events: %w", err)
	}
	messagesJSON, err := json.Marshal(st.RecentMessages)
	if err != nil {
		return fmt.Errorf("ошибка сериализации recent_messages: %w", err)
	}
	xpJSON, err := json.Marshal(st.RecentXP)
	if err != nil {
		return fmt.Errorf("ошибка сериализации recent_xp: %w", err)
	}

	var newVersion int64
	if expectedVersion == 0 {
		err = r.pool.QueryRow(ctx, insertRelationshipStateQuery,
			st.UserID, st.CharacterID,
			st.EmotionScore, st.EmotionState, st.ColdWar,
			st.TotalXP, st.DeferredXP, st.Level,
			eventsJSON, messagesJSON, xpJSON,
			st.LastInteractionAt, st.CreatedAt,
		).Scan(&newVersion)
		if errors.Is(err, pgx.ErrNoRows) {
			// Строка уже существует: кто-то успел создать пару первым.
			return domain.ErrVersionConflict
		}
	} else {
		err = r.pool.QueryRow(ctx, updateRelationshipStateQuery,
			st.UserID, st.CharacterID,
			st.EmotionScore, st.EmotionState, st.ColdWar,
			st.TotalXP, st.DeferredXP, st.Level,
			eventsJSON, messagesJSON, xpJSON,
			st.LastInteractionAt,
			expectedVersion,
		).Scan(&newVersion)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrVersionConflict
		}
	}
	if err != nil {
		r.logger.Error("failed to save relationship state", zap.Error(err),
			zap.String("userID", st.UserID.String()), zap.String("characterID", st.CharacterID.String()))
		return fmt.Errorf("ошибка сохранения состояния пары: %w", err)
	}

	st.Version = newVersion
	return nil
}

// Delete выполняет явное стирание данных пары.
func (r *PgRelationshipStateRepository) Delete(ctx context.Context, userID, characterID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, deleteRelationshipStateQuery, userID, characterID)
	if err != nil {
		return fmt.Errorf("ошибка удаления состояния пары: %w", err)
	}
	return nil
}

// AppendTurnRecord добавляет запись аудита хода.
func (r *PgRelationshipStateRepository) AppendTurnRecord(ctx context.Context, rec *domain.TurnRecord) error {
	eventsJSON, err := json.Marshal(rec.Events)
	if err != nil {
		return fmt.Errorf("ошибка сериализации events: %w", err)
	}
	_, err = r.pool.Exec(ctx, insertTurnRecordQuery,
		rec.ID, rec.UserID, rec.CharacterID,
		rec.Category, rec.Stimulus, rec.OldScore, rec.NewScore,
		rec.XPGranted, eventsJSON, rec.Refused, rec.Refusal, rec.Degraded,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи аудита хода: %w", err)
	}
	return nil
}
