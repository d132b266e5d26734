// File: internal/interact/formtracker_test.go
package interact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormTrackerTransitions(t *testing.T) {
	t.Parallel()

	tr := NewFormTracker()
	assert.Equal(t, FormUntouched, tr.State())

	tr.FocusIn()
	assert.Equal(t, FormInteracted, tr.State())

	// Focus after submit must not regress the state.
	tr.Submit()
	assert.Equal(t, FormSubmitted, tr.State())
	tr.FocusIn()
	assert.Equal(t, FormSubmitted, tr.State())
}

func TestFormTrackerAbandoned(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		setup     func(*FormTracker)
		exit      bool
		abandoned bool
	}{
		{"untouched with exit", func(*FormTracker) {}, true, false},
		{"interacted without exit", func(tr *FormTracker) { tr.FocusIn() }, false, false},
		{"interacted with exit", func(tr *FormTracker) { tr.FocusIn() }, true, true},
		{"submitted with exit", func(tr *FormTracker) { tr.FocusIn(); tr.Submit() }, true, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tr := NewFormTracker()
			tc.setup(tr)
			assert.Equal(t, tc.abandoned, tr.Abandoned(tc.exit))
		})
	}
}
