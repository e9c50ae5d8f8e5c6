// Package models holds the registry record as the portal sees it.
// Records are rebuilt from every API response and never cached.
package models

// State is the lifecycle state of a parking card.
type State string

const (
	StateActive   State = "active"
	StateInactive State = "inactive"
	StateExpired  State = "expired"
)

// States lists the choices offered when editing a record, in display order.
var States = []State{StateActive, StateInactive, StateExpired}

// Label returns the Spanish display label; unrecognized and missing states read "Desconocido".
func (s State) Label() string {
	switch s {
	case StateActive:
		return "Activa"
	case StateInactive:
		return "Inactiva"
	case StateExpired:
		return "Expirada"
	default:
		return "Desconocido"
	}
}

// Class returns the styling class for the state. A missing state styles as inactive,
// any other value is used verbatim.
// Note the label and class fallbacks disagree for a missing state; both are kept.
func (s State) Class() string {
	if s == "" {
		return "state-" + string(StateInactive)
	}
	return "state-" + string(s)
}

// Record is the flat user/card view returned by the registry API.
// Every field is optional; null and "" both mean absent.
type Record struct {
	IDUser                string `json:"id_user"`
	FullName              string `json:"full_name"`
	CardNumber            string `json:"card_number"`
	State                 State  `json:"state"`
	CarPlate              string `json:"car_plate"`
	Brand                 string `json:"brand"`
	AuthorizationDocument string `json:"authorization_document"`
	Created               string `json:"created"`
	Updated               string `json:"updated"`
}

// SearchKind selects which identifier a search key is.
type SearchKind string

const (
	KindUser SearchKind = "user"
	KindCard SearchKind = "card"
)

// ParseSearchKind maps "user" to KindUser; every other value searches by card.
func ParseSearchKind(s string) SearchKind {
	if s == string(KindUser) {
		return KindUser
	}
	return KindCard
}

// UpdatePayload is the full-replace body sent when saving an edited record.
// It always carries exactly these four fields.
type UpdatePayload struct {
	FullName string `json:"full_name"`
	State    State  `json:"state"`
	CarPlate string `json:"car_plate"`
	Brand    string `json:"brand"`
}
