package types

import "time"

type DoorState string

const (
	DoorClosed  DoorState = "CLOSED"
	DoorOpening DoorState = "OPENING"
	DoorOpen    DoorState = "OPEN"
	DoorClosing DoorState = "CLOSING"
	DoorStopped DoorState = "STOPPED"
)

// Moving reports whether the state is a transient dwell state.
func (s DoorState) Moving() bool {
	return s == DoorOpening || s == DoorClosing
}

type DoorStatus struct {
	State       DoorState `json:"state"`
	Obstructed  bool      `json:"obstructed"`
	ChangedAt   time.Time `json:"changed_at"`
	PendingUser string    `json:"pending_user,omitempty"`
	ServerTime  string    `json:"server_time"`
}
