package admin

// State is the dirty-tracking state of the admin form.
//
//	         Change / Restore
//	  Clean ─────────────────► Dirty ◄─┐ Change
//	    ▲                        │  └───┘
//	    └── Saved / Reset / Edit ┘
//
// The identifier being edited is tracked next to the state; it changes only
// on Edit, Restore and when the form is cleared.
type State string

const (
	StateClean State = "clean"
	StateDirty State = "dirty"
)

// Event is a discrete input to the form state machine.
type Event string

const (
	EventChange  Event = "change"
	EventRestore Event = "restore"
	EventSaved   Event = "saved"
	EventReset   Event = "reset"
	EventEdit    Event = "edit"
)

var transitions = map[State]map[Event]State{
	StateClean: {
		EventChange:  StateDirty,
		EventRestore: StateDirty,
		EventSaved:   StateClean,
		EventReset:   StateClean,
		EventEdit:    StateClean,
	},
	StateDirty: {
		EventChange:  StateDirty,
		EventRestore: StateDirty,
		EventSaved:   StateClean,
		EventReset:   StateClean,
		EventEdit:    StateClean,
	},
}

// Next returns the state after e, and false if e is not accepted in s.
func Next(s State, e Event) (State, bool) {
	to, ok := transitions[s][e]
	return to, ok
}
