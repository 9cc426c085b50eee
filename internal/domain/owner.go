package domain

import (
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidOwner = errors.New("cart owner must be exactly one of user or session")

// Owner identifies whose cart is being addressed: an authenticated user or an
// anonymous browser session, never both.
type Owner struct {
	UserID    uuid.UUID
	SessionID string
}

// UserOwner scopes a cart to an authenticated user.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: userID}
}

// SessionOwner scopes a cart to an anonymous session.
func SessionOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.UserID != uuid.Nil
}

// Validate enforces that exactly one identity is set.
func (o Owner) Validate() error {
	if (o.UserID != uuid.Nil) == (o.SessionID != "") {
		return ErrInvalidOwner
	}
	return nil
}

func (o Owner) String() string {
	if o.IsUser() {
		return "user:" + o.UserID.String()
	}
	return "session:" + o.SessionID
}
