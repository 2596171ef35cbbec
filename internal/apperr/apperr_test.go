package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindDuplicateExternalID, "external_id already exists", nil)
	assert.True(t, Is(err, KindDuplicateExternalID))
	assert.False(t, Is(err, KindStoreUnavailable))
}

func TestOfReturnsKind(t *testing.T) {
	err := New(KindDecodeFailed, "bad file", errors.New("boom"))
	assert.Equal(t, KindDecodeFailed, Of(err))
}

func TestOfDefaultsToInternalForForeignErrors(t *testing.T) {
	assert.Equal(t, KindInternal, Of(errors.New("plain error")))
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := New(KindStoreUnavailable, "inserting track", cause)
	assert.ErrorContains(t, err, "disk full")
	assert.ErrorContains(t, err, "inserting track")
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := New(KindInternal, "wrapped", cause)
	assert.ErrorIs(t, err, cause)
}

func TestNewWithoutCause(t *testing.T) {
	err := New(KindEmptyAfterTrim, "no audio left", nil)
	assert.Equal(t, "no audio left", err.Error())
	assert.Nil(t, err.Unwrap())
}
