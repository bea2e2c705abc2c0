package botproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AlreadyRunningError(t *testing.T) {
	err := NewAlreadyRunningError(42)
	assert.EqualError(t, err, "bot is already running with pid 42")

	var runningErr AlreadyRunningError
	assert.ErrorAs(t, err, &runningErr)
	assert.EqualValues(t, 42, runningErr.Pid)
}
