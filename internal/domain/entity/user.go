package entity

import (
	"time"

	"github.com/garyjia/zoompay/internal/domain/workflow"
)

// User is a registered account. Designation is empty until a superuser assigns one.
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Contact      string        `json:"contact,omitempty"`
	PasswordHash string        `json:"-"`
	Designation  workflow.Role `json:"designation,omitempty"`
	Company      string        `json:"company,omitempty"`
	Bank         string        `json:"bank,omitempty"`
	Pending      bool          `json:"pending"`
	Approved     bool          `json:"approved"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	UpdatedBy    string        `json:"updated_by,omitempty"`
}

// CanSignIn reports whether the account has been approved with a designation
func (u *User) CanSignIn() bool {
	return !u.Pending && u.Designation != ""
}

// Actor projects the user into the identity passed to lifecycle operations
func (u *User) Actor() Actor {
	return Actor{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Designation,
		Company:  u.Company,
		Bank:     u.Bank,
		Approved: u.Approved,
	}
}

// UnknownCompany is recorded on receipts and vouchers whose submitter has no company
const UnknownCompany = "Unknown Company"

// Company is an organisation whose staff submit receipts
type Company struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address,omitempty"`
	ContactPerson string    `json:"contact_person"`
	ContactEmail  string    `json:"contact_email"`
	ContactPhone  string    `json:"contact_phone,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by"`
}

// Bank is a disbursing bank whose staff act on vouchers
type Bank struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address,omitempty"`
	SwiftCode     string    `json:"swift_code"`
	ContactPerson string    `json:"contact_person,omitempty"`
	ContactEmail  string    `json:"contact_email,omitempty"`
	ContactPhone  string    `json:"contact_phone,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by"`
}
