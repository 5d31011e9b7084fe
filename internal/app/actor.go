package app

import "quiz-app-service/internal/domain"

// Actor is the authenticated caller of a use case.
type Actor struct {
	UserID  string
	IsAdmin bool
	TokenID string
}

func requireUser(actor Actor) error {
	if actor.UserID == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

func requireAdmin(actor Actor) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

// canManage reports whether actor may change a resource created by ownerID.
func canManage(actor Actor, ownerID string) bool {
	return actor.IsAdmin || (actor.UserID != "" && actor.UserID == ownerID)
}
