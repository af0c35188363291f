// Package pagination implements opaque keyset page tokens over snowflake IDs.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid_page_token")

// Pagination is the query-string shape accepted by list endpoints.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50"`
}

// Cursor marks the last row a client has already seen.
type Cursor struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	if strings.TrimSpace(c.ID) == "" {
		return "", ErrInvalidCursor
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor accepts tokens produced by EncodeCursor. Padded base64 is
// tolerated so hand-built tokens still work.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	if token == "" {
		return nil, ErrInvalidCursor
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || strings.TrimSpace(c.ID) == "" {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// Trim cuts rows fetched with limit+1 down to limit and reports whether a
// further page exists. next builds the token from the last kept row.
func Trim[T any](rows []*T, limit int32, next func(*T) Cursor) ([]*T, PageInfo) {
	if limit <= 0 || len(rows) <= int(limit) {
		return rows, PageInfo{}
	}
	rows = rows[:limit]
	token, err := EncodeCursor(next(rows[len(rows)-1]))
	if err != nil {
		return rows, PageInfo{}
	}
	return rows, PageInfo{NextPageToken: token, HasMore: true}
}
