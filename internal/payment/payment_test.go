package payment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Transitions(t *testing.T) {
	tr := NewTracker(nil)
	assert.Equal(t, State{Status: StatusIdle}, tr.State())

	tr.Start()
	assert.Equal(t, StatusProcessing, tr.State().Status)

	tr.Fail(errors.New("signature invalid"))
	assert.Equal(t, State{Status: StatusError, Error: "signature invalid"}, tr.State())

	tr.Start()
	assert.Empty(t, tr.State().Error, "starting again clears the error")

	tr.Succeed()
	assert.Equal(t, State{Status: StatusSuccess}, tr.State())

	tr.Reset()
	assert.Equal(t, State{Status: StatusIdle}, tr.State())
}

func TestTracker_FailWithoutError(t *testing.T) {
	tr := NewTracker(nil)
	tr.Fail(nil)
	assert.Equal(t, "payment failed", tr.State().Error)
}
