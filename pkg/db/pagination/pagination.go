package pagination

import (
	"encoding/base64"
	"encoding/json"
)

// Pagination binds cursor paging query params.
type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit,default=50" validate:"gte=1,lte=100"`
}

// Cursor pins a position in a (created_at, id) keyset walk. Both fields
// travel as strings so the cursor survives any id or timestamp encoding.
type Cursor struct {
	CreatedAt string `json:"created_at,omitempty"`
	ID        string `json:"id,omitempty"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Trim cuts an over-fetched page back to limit and reports the next
// cursor. Callers fetch limit+1 rows so HasMore needs no extra count.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, *PageInfo, error) {
	if limit <= 0 || len(rows) <= limit {
		return rows, &PageInfo{}, nil
	}

	rows = rows[:limit]
	next, err := EncodeCursor(cursorOf(rows[len(rows)-1]))
	if err != nil {
		return nil, nil, err
	}
	return rows, &PageInfo{NextCursor: next, HasMore: true}, nil
}
