package models

// ActorKind distinguishes the party initiating a state-changing operation.
type ActorKind string

const (
	ActorPatient ActorKind = RolePatient
	ActorAdmin   ActorKind = RoleAdmin
)

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	Kind     ActorKind
	UserID   uint
	Username string
}

func PatientActor(userID uint, username string) Actor {
	return Actor{Kind: ActorPatient, UserID: userID, Username: username}
}

func AdminActor(userID uint, username string) Actor {
	return Actor{Kind: ActorAdmin, UserID: userID, Username: username}
}

func (a Actor) IsAdmin() bool {
	return a.Kind == ActorAdmin
}

// PatientRef identifies whose appointments a conflict check looks at: a
// linked account, or only a free-text name.
type PatientRef struct {
	UserID *uint
	Name   string
}
