package verse_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sundayschool/core/verse"
	dummydb "github.com/trezcool/sundayschool/storage/database/dummy"
)

func TestService_Daily(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	svc := verse.NewService(dummydb.NewVerseRepository(db))
	ctx := context.Background()

	_, err = svc.Daily(ctx, "")
	assert.Equal(t, verse.ErrNotFound, errors.Cause(err))

	john := db.AddVerse(verse.Verse{VerseText: "For God so loved the world...", Reference: "John 3:16"})
	juan := db.AddVerse(verse.Verse{VerseText: "Porque de tal manera amó Dios al mundo...", Reference: "Juan 3:16", Language: "Spanish"})

	v, err := svc.Daily(ctx, " spanish ")
	require.NoError(t, err)
	assert.Equal(t, juan.ID, v.ID)

	v, err = svc.Daily(ctx, "English")
	require.NoError(t, err)
	assert.Equal(t, john.ID, v.ID)

	v, err = svc.Daily(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, []int{john.ID, juan.ID}, v.ID)

	_, err = svc.Daily(ctx, "Swahili")
	assert.Equal(t, verse.ErrNotFound, errors.Cause(err))
}
