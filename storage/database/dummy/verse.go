package dummydb

import (
	"context"
	"math/rand"
	"strings"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/verse"
)

type verseRepository struct {
	db *DB
}

var _ verse.Repository = (*verseRepository)(nil) // interface compliance check

func NewVerseRepository(db *DB) *verseRepository {
	return &verseRepository{db: db}
}

func (repo *verseRepository) RandomVerse(_ context.Context, language string, _ ...core.DBExecutor) (verse.Verse, error) {
	verses := repo.db.verse.snapshot()
	if language != "" {
		verses = filterRows(verses, func(v verse.Verse) bool { return strings.EqualFold(v.Language, language) })
	}
	if len(verses) == 0 {
		return verse.Verse{}, verse.ErrNotFound
	}
	return verses[rand.Intn(len(verses))], nil
}
