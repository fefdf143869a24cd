package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	assert.Equal(t, context.Background(), WithRequestID(context.Background(), "  "))
}

func TestOrgID(t *testing.T) {
	ctx := WithOrgID(context.Background(), "42")
	assert.Equal(t, "42", OrgIDFromContext(ctx))
	assert.Equal(t, "", OrgIDFromContext(nil))
}
