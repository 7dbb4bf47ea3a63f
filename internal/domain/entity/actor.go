package entity

import "github.com/garyjia/zoompay/internal/domain/workflow"

// Actor is the authenticated caller of a lifecycle operation.
// It is passed explicitly into every operation.
type Actor struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Role     workflow.Role `json:"role"`
	Company  string        `json:"company,omitempty"`
	Bank     string        `json:"bank,omitempty"`
	Approved bool          `json:"approved"`
}

// DisplayName returns the name used for attribution fields, falling back to email
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// IsAuthenticated reports whether the actor carries an identity
func (a Actor) IsAuthenticated() bool {
	return a.ID != ""
}
