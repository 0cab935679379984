package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const branchScope = "branch=7;status=pending"

func TestCursorDecodesUnderItsOwnScope(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 5, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in, branchScope), branchScope)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestCursorFromAnotherListingIsRejected(t *testing.T) {
	token := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()}, branchScope)
	_, err := ParseCursor(token, "branch=8;status=pending")
	assert.True(t, errors.Is(err, ErrScopeMismatch))
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	cur, err := ParseCursor("  ", branchScope)
	require.NoError(t, err)
	assert.Nil(t, cur)

	_, err = ParseCursor("!!!", branchScope)
	require.Error(t, err)

	legacy := base64.RawURLEncoding.EncodeToString([]byte("2026-03-01T12:00:00Z|" + uuid.NewString()))
	_, err = ParseCursor(legacy, branchScope)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrScopeMismatch))
}

func TestPaginateBuildsNextCursor(t *testing.T) {
	now := time.Now().UTC()
	rows := []Cursor{
		{CreatedAt: now, ID: uuid.New()},
		{CreatedAt: now.Add(-time.Minute), ID: uuid.New()},
		{CreatedAt: now.Add(-2 * time.Minute), ID: uuid.New()},
	}
	identity := func(c Cursor) Cursor { return c }

	page := Paginate(rows, 2, branchScope, identity)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := ParseCursor(page.NextCursor, branchScope)
	require.NoError(t, err)
	assert.Equal(t, rows[1].ID, next.ID)

	last := Paginate(rows[:2], 2, branchScope, identity)
	assert.Len(t, last.Items, 2)
	assert.Empty(t, last.NextCursor)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, MaxLimit, NormalizeLimit(1000))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}
