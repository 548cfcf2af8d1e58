package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"companion-server/internal/domain"
)

const getCharacterTraitsQuery = `
    SELECT character_id, purity, chaos, pride, greed,
           sensitivity, forgiveness_rate, boundary_strictness, archetype
    FROM character_traits
    WHERE character_id = $1
`

// Compile-time check
var _ CharacterTraitsRepository = (*PgCharacterTraitsRepository)(nil)

// PgCharacterTraitsRepository - Postgres-реализация хранилища черт.
// Если у персонажа нет строки, возвращается профиль по умолчанию для его
// архетипа (ленивое создание, как и у состояния пары). fallbackArchetype
// используется, когда архетип вообще неизвестен.
type PgCharacterTraitsRepository struct {
	pool              *pgxpool.Pool
	logger            *zap.Logger
	fallbackArchetype domain.Archetype
}

// NewPgCharacterTraitsRepository создает репозиторий.
func NewPgCharacterTraitsRepository(pool *pgxpool.Pool, logger *zap.Logger) *PgCharacterTraitsRepository {
	return &PgCharacterTraitsRepository{
		pool:              pool,
		logger:            logger.Named("PgTraitsRepo"),
		fallbackArchetype: domain.ArchetypeStandard,
	}
}

// GetTraits возвращает черты персонажа. Отсутствующая строка - не ошибка:
// персонаж получает дефолтный профиль своего fallback-архетипа.
func (r *PgCharacterTraitsRepository) GetTraits(ctx context.Context, characterID uuid.UUID) (domain.CharacterTraits, error) {
	var row struct {
		CharacterID        uuid.UUID `db:"character_id"`
		Purity             float64   `db:"purity"`
		Chaos              float64   `db:"chaos"`
		Pride              float64   `db:"pride"`
		Greed              float64   `db:"greed"`
		Sensitivity        float64   `db:"sensitivity"`
		ForgivenessRate    float64   `db:"forgiveness_rate"`
		BoundaryStrictness float64   `db:"boundary_strictness"`
		Archetype          string    `db:"archetype"`
	}

	err := pgxscan.Get(ctx, r.pool, &row, getCharacterTraitsQuery, characterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("traits not found, using archetype defaults",
				zap.String("characterID", characterID.String()))
			return domain.DefaultTraits(characterID, r.fallbackArchetype), nil
		}
		return domain.CharacterTraits{}, fmt.Errorf("ошибка чтения черт персонажа: %w", err)
	}

	archetype := domain.Archetype(row.Archetype)
	if !archetype.Valid() {
		archetype = r.fallbackArchetype
	}

	return domain.CharacterTraits{
		CharacterID:        row.CharacterID,
		Purity:             row.Purity,
		Chaos:              row.Chaos,
		Pride:              row.Pride,
		Greed:              row.Greed,
		Sensitivity:        row.Sensitivity,
		ForgivenessRate:    row.ForgivenessRate,
		BoundaryStrictness: row.BoundaryStrictness,
		Archetype:          archetype,
	}, nil
}
