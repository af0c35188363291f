package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id string }

func cursorOf(r *row) Cursor { return Cursor{ID: r.id} }

func TestTrim(t *testing.T) {
	rows := []*row{{id: "1"}, {id: "2"}, {id: "3"}}

	kept, info := Trim(rows, 2, cursorOf)
	require.Len(t, kept, 2)
	assert.True(t, info.HasMore)
	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)

	kept, info = Trim(rows, 5, cursorOf)
	assert.Len(t, kept, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)

	kept, info = Trim([]*row{}, 5, cursorOf)
	assert.Empty(t, kept)
	assert.False(t, info.HasMore)
}

func TestCursorTokens(t *testing.T) {
	at := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	token, err := EncodeCursor(Cursor{ID: "42", RecordedAt: at})
	require.NoError(t, err)
	assert.NotContains(t, token, "=")

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.True(t, at.Equal(cursor.RecordedAt))

	_, err = EncodeCursor(Cursor{})
	assert.ErrorIs(t, err, ErrInvalidCursor)

	for _, bad := range []string{"", "%%%", "bm90IGpzb24", "e30"} {
		_, err = DecodeCursor(bad)
		assert.ErrorIs(t, err, ErrInvalidCursor, bad)
	}
}
