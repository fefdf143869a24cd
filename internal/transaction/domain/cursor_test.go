package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCursorEmpty(t *testing.T) {
	cursor, err := ParseCursor("")
	require.NoError(t, err)
	assert.True(t, cursor.IsZero())
}

func TestParseCursorPositions(t *testing.T) {
	cursor, err := ParseCursor("sub_1||otp_9|inv_3")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", cursor.Fragment(SourceSubscriptions))
	assert.Equal(t, "", cursor.Fragment(SourceItemQuantityChanges))
	assert.Equal(t, "otp_9", cursor.Fragment(SourceOneTimePurchases))
	assert.Equal(t, "inv_3", cursor.Fragment(SourceSubscriptionInvoices))
	assert.Equal(t, "sub_1||otp_9|inv_3", cursor.String())
}

func TestParseCursorAllEmptyFragments(t *testing.T) {
	cursor, err := ParseCursor("|||")
	require.NoError(t, err)
	assert.True(t, cursor.IsZero())
}

func TestParseCursorMalformed(t *testing.T) {
	for _, raw := range []string{"abc", "a|b|c", "a|b|c|d|e", "a b|||", "|\t||"} {
		_, err := ParseCursor(raw)
		assert.ErrorIs(t, err, ErrMalformedCursor, raw)
	}
}

func TestPivotBefore(t *testing.T) {
	base := Pivot{CreatedAt: mustTime(t, "2026-01-02T10:00:00.000Z"), ID: "b"}
	later := Pivot{CreatedAt: mustTime(t, "2026-01-02T10:00:00.001Z"), ID: "a"}
	sameTimeLowerID := Pivot{CreatedAt: base.CreatedAt, ID: "a"}

	assert.True(t, later.Before(base))
	assert.False(t, base.Before(later))
	assert.True(t, base.Before(sameTimeLowerID))
	assert.False(t, sameTimeLowerID.Before(base))
	assert.False(t, base.Before(base))
}
