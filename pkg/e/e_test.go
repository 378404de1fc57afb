package e

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReason(t *testing.T) {
	wrapped := Wrap("LauncherUseCase.StartPrepare", Wrap("template 7", ErrRunActive))

	assert.Equal(t, "run_active", Reason(wrapped))
	assert.Equal(t, "out_of_scope_seed", Reason(ErrOutOfScopeSeed))
	assert.Equal(t, "internal", Reason(fmt.Errorf("boom")))
	assert.Equal(t, "shutdown", Reason(Wrap("op", ErrShutdown)))
}

func TestClassification(t *testing.T) {
	assert.True(t, IsValidation(Wrap("op", ErrEmptySeedList)))
	assert.False(t, IsValidation(ErrRunActive))

	assert.True(t, IsConflict(Wrap("op", ErrRunNotPublishable)))
	assert.False(t, IsConflict(ErrNotFound))
}
