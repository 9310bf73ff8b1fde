package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(TableNotFound, "store.Read", "table %q does not exist", "features")
	wrapped := fmt.Errorf("verify stored features: %w", base)

	assert.True(t, errors.Is(wrapped, ErrTableNotFound))
	assert.False(t, errors.Is(wrapped, ErrStoreUnavailable))
	assert.Equal(t, TableNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, TableNotFound))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(IOError, "artifact.SaveModel", nil))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IOError, "artifact.SavePredictions", cause)

	assert.Equal(t, "artifact.SavePredictions: IO_ERROR: disk full", err.Error())
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "SCHEMA_ERROR", ErrSchema.Error())
}

func TestKindOfUnkinded(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Unknown, KindOf(nil))
}
