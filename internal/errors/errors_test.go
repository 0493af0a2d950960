package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidf(t *testing.T) {
	err := Invalidf("unsupported document type %q", "a.docx")
	assert.True(t, IsInvalidInput(err))
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), `"a.docx"`)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNotFoundf(t *testing.T) {
	err := NotFoundf("project %s", "new-123")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "new-123")
}

func TestPredicates_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("handling request: %w", NotFoundf("topic %s", "pricing"))
	assert.True(t, IsNotFound(wrapped))

	assert.True(t, IsAlreadyScheduled(fmt.Errorf("scheduling: %w", ErrAlreadyScheduled)))
	assert.False(t, IsAlreadyScheduled(errors.New("other")))
	assert.False(t, IsNotFound(nil))
}
