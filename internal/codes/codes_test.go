package codes

import (
	"context"
	"errors"
	"testing"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/testutil"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequence struct {
	values []string
	calls  int
}

func (s *sequence) Generate() (string, error) {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return v, nil
}

func TestRandomGeneratorShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := RandomGenerator{}.Generate()
		require.NoError(t, err)
		assert.True(t, Valid(code), code)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "AB12CD", Normalize(" ab1-2cd "))
	assert.Equal(t, "AB12CD", Normalize("ab 12 cd"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("A1B2C3"))
	assert.False(t, Valid("a1b2c3"))
	assert.False(t, Valid("A1B2C"))
	assert.False(t, Valid("A1B2C3D"))
}

func insertCode(t *testing.T, userID string) func(string) error {
	store := testutil.NewStore(t)
	return func(code string) error {
		return store.Create(context.Background(), &models.AccessCode{
			Code: code, UserID: userID, EntityType: models.EntityProperty, EntityID: "p1", IsActive: true,
		})
	}
}

func TestIssueRetriesOnCollision(t *testing.T) {
	store := testutil.NewStore(t)
	insert := func(code string) error {
		return store.Create(context.Background(), &models.AccessCode{
			Code: code, UserID: testutil.Client.ID, EntityType: models.EntityProperty, EntityID: "p1", IsActive: true,
		})
	}

	gen := &sequence{values: []string{"AAAAAA", "AAAAAA", "BBBBBB"}}
	first, err := Issue(gen, insert)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first)

	second, err := Issue(gen, insert)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", second)
	assert.Equal(t, 3, gen.calls)
}

func TestIssueGivesUpAfterMaxAttempts(t *testing.T) {
	insert := insertCode(t, testutil.Client.ID)
	gen := &sequence{values: []string{"ZZZZZZ"}}

	_, err := Issue(gen, insert)
	require.NoError(t, err)

	_, err = Issue(gen, insert)
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)
	assert.Equal(t, 1+MaxAttempts, gen.calls)
}

func TestIssueStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("disk full")
	gen := &sequence{values: []string{"AAAAAA"}}

	_, err := Issue(gen, func(string) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, gen.calls)
}
