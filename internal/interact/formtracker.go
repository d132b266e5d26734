// File: internal/interact/formtracker.go
package interact

// FormState is the explicit form-interaction state machine. Transitions are
// monotonic: untouched -> interacted -> submitted.
type FormState string

const (
	FormUntouched  FormState = "untouched"
	FormInteracted FormState = "interacted"
	FormSubmitted  FormState = "submitted"
)

// FormTracker tracks one form's interaction lifecycle within a session.
// Abandonment is a pure function of final state plus an exit signal, not a
// pair of independently mutated flags.
type FormTracker struct {
	state FormState
}

// NewFormTracker starts in the untouched state.
func NewFormTracker() *FormTracker {
	return &FormTracker{state: FormUntouched}
}

// FocusIn records a focus-in on any form control. Only valid from untouched;
// later transitions keep the stronger state.
func (t *FormTracker) FocusIn() {
	if t.state == FormUntouched {
		t.state = FormInteracted
	}
}

// Submit records a form submission.
func (t *FormTracker) Submit() {
	t.state = FormSubmitted
}

// State returns the current state.
func (t *FormTracker) State() FormState {
	return t.state
}

// Abandoned reports whether the form was abandoned: the user interacted with
// it, never submitted, and the exit signal fired.
func (t *FormTracker) Abandoned(exit bool) bool {
	return exit && t.state == FormInteracted
}
