package domain

import (
	"strings"
	"unicode"
)

// CursorDelimiter separates the per-source fragments of a composite cursor.
const CursorDelimiter = "|"

const maxFragmentLength = 128

// Cursor holds one fragment per source, indexed by Source. An empty fragment
// means the start of that source.
type Cursor [SourceCount]string

// ParseCursor splits a composite cursor. An empty string is the start of
// every source; anything else must carry exactly SourceCount fragments.
func ParseCursor(raw string) (Cursor, error) {
	var cursor Cursor
	if raw == "" {
		return cursor, nil
	}

	parts := strings.Split(raw, CursorDelimiter)
	if len(parts) != SourceCount {
		return cursor, ErrMalformedCursor
	}
	for i, part := range parts {
		if !validFragment(part) {
			return Cursor{}, ErrMalformedCursor
		}
		cursor[i] = part
	}
	return cursor, nil
}

func validFragment(fragment string) bool {
	if len(fragment) > maxFragmentLength {
		return false
	}
	for _, r := range fragment {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Fragment returns the cursor fragment of source.
func (c Cursor) Fragment(source Source) string {
	return c[source]
}

// IsZero reports whether no source has a fragment.
func (c Cursor) IsZero() bool {
	return c == Cursor{}
}

func (c Cursor) String() string {
	return strings.Join(c[:], CursorDelimiter)
}
