package verse

import (
	"context"
	"time"

	"github.com/trezcool/sundayschool/core"
)

var ErrNotFound = core.NewNotFoundError("No verses found")

type Verse struct {
	ID        int       `json:"id"`
	VerseText string    `json:"verseText"`
	Reference string    `json:"reference"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type (
	Repository interface {
		// RandomVerse returns ErrNotFound when there is no verse in the language.
		// An empty language matches every verse.
		RandomVerse(ctx context.Context, language string, exec ...core.DBExecutor) (Verse, error)
	}

	ServiceInterface interface {
		Daily(ctx context.Context, language string) (Verse, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Daily picks a random verse.
func (svc *Service) Daily(ctx context.Context, language string) (Verse, error) {
	return svc.repo.RandomVerse(ctx, core.CleanString(language))
}
