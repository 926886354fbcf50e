package catalog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// CursorData is the payload of an opaque pagination cursor.
type CursorData struct {
	AfterID uint `json:"after_id,omitempty"`
}

// EncodeCursor encodes cursor data to a base64 string. A zero AfterID
// encodes to the empty cursor, which means "start from the newest record".
func EncodeCursor(data CursorData) string {
	if data.AfterID == 0 {
		return ""
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(jsonBytes)
}

// DecodeCursor decodes a base64 cursor string to CursorData
func DecodeCursor(cursor string) (CursorData, error) {
	if cursor == "" {
		return CursorData{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return CursorData{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	var data CursorData
	if err := json.Unmarshal(decoded, &data); err != nil {
		return CursorData{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return data, nil
}
