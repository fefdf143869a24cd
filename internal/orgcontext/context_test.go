package orgcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestOrgIDFromContext(t *testing.T) {
	id, ok := OrgIDFromContext(WithOrgID(context.Background(), 42))
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)

	id, ok = OrgIDFromContext(context.WithValue(context.Background(), OrgContextKey{}, " 77 "))
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(77), id)

	id, ok = OrgIDFromContext(context.WithValue(context.Background(), OrgContextKey{}, snowflake.ID(9)))
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(9), id)
}

func TestOrgIDFromContextMissing(t *testing.T) {
	_, ok := OrgIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = OrgIDFromContext(context.WithValue(context.Background(), OrgContextKey{}, "acme"))
	assert.False(t, ok)
}
