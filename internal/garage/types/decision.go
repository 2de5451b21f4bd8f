package types

type DecisionKind string

const (
	DecisionDenied      DecisionKind = "DENIED"
	DecisionPendingAuth DecisionKind = "PENDING_AUTH"
	DecisionAuthorized  DecisionKind = "AUTHORIZED"
)

type DenyReason string

const (
	ReasonNotRegistered        DenyReason = "not_registered"
	ReasonBlacklisted          DenyReason = "blacklisted"
	ReasonInactive             DenyReason = "inactive"
	ReasonExpired              DenyReason = "expired"
	ReasonSecondFactorRejected DenyReason = "second_factor_rejected"
)

// Decision is the outcome of resolving a plate. User is set whenever the
// plate matched a roster entry, including most denials; Reason only for DENIED.
type Decision struct {
	Kind   DecisionKind `json:"decision"`
	Plate  string       `json:"plate"`
	User   *AccessUser  `json:"user,omitempty"`
	Reason DenyReason   `json:"reason,omitempty"`
}

func Denied(plate string, reason DenyReason) Decision {
	return Decision{Kind: DecisionDenied, Plate: plate, Reason: reason}
}

func DeniedUser(u AccessUser, reason DenyReason) Decision {
	return Decision{Kind: DecisionDenied, Plate: u.Plate, User: &u, Reason: reason}
}

func PendingAuth(u AccessUser) Decision {
	return Decision{Kind: DecisionPendingAuth, Plate: u.Plate, User: &u}
}

func Authorized(u AccessUser) Decision {
	return Decision{Kind: DecisionAuthorized, Plate: u.Plate, User: &u}
}

func (d Decision) Denied() bool { return d.Kind == DecisionDenied }
