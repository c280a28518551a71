package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/verse"
)

type verseRepository struct {
	baseRepository
}

var _ verse.Repository = (*verseRepository)(nil) // interface compliance check

func NewVerseRepository(exec core.DBExecutor) *verseRepository {
	return &verseRepository{baseRepository{exec: exec}}
}

func (repo *verseRepository) RandomVerse(ctx context.Context, language string, exec ...core.DBExecutor) (verse.Verse, error) {
	var row struct {
		ID        int       `db:"id"`
		VerseText string    `db:"verse_text"`
		Reference string    `db:"reference"`
		Language  string    `db:"language"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	query := `
		SELECT id, verse_text, reference, language, created_at, updated_at
		FROM bible_verses
		WHERE $1 = '' OR LOWER(language) = LOWER($1)
		ORDER BY RANDOM()
		LIMIT 1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, language); err != nil {
		return verse.Verse{}, rowError(err, "fetching random verse", verse.ErrNotFound, nil)
	}
	return verse.Verse{
		ID:        row.ID,
		VerseText: row.VerseText,
		Reference: row.Reference,
		Language:  row.Language,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}
