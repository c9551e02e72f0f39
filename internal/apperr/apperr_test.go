package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("not yours")))
	assert.Equal(t, KindConflict, KindOf(Conflict("already done")))
	assert.Equal(t, KindInternal, KindOf(Internal("query", errors.New("boom"))))

	// Unclassified errors fall through to internal.
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", Conflict("state moved on"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, IsKind(err, KindConflict))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "not yours", MessageOf(Forbidden("not yours")))

	// Internal details never leak to callers.
	msg := MessageOf(Internal("query users", errors.New("connection refused")))
	assert.NotContains(t, msg, "connection refused")
	assert.NotContains(t, msg, "query users")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	assert.ErrorIs(t, Internal("store", cause), cause)
}
