package types

import "time"

type Action string

const (
	ActionEntry  Action = "ENTRY"
	ActionExit   Action = "EXIT"
	ActionDenied Action = "DENIED"
)

type Method string

const (
	MethodLPR       Method = "LPR"
	MethodManual    Method = "MANUAL"
	MethodBluetooth Method = "BLUETOOTH"
	MethodAdmin     Method = "ADMIN"
)

func (m Method) Valid() bool {
	switch m {
	case MethodLPR, MethodManual, MethodBluetooth, MethodAdmin:
		return true
	}
	return false
}

// AccessLog is an immutable audit record. Timestamp is the creation time.
type AccessLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserName  string    `json:"user_name"`
	Plate     string    `json:"plate"`
	Action    Action    `json:"action"`
	Method    Method    `json:"method"`
	Reason    string    `json:"reason,omitempty"`
}
