package workflow

// Role is the designation assigned to a user by a superuser
type Role string

const (
	RoleSubmitter Role = "admin"
	RoleFinance   Role = "finance"
	RoleVoucher   Role = "voucher"
	RoleChecker   Role = "checker"
	RoleInitiator Role = "initiator"
	RolePayment   Role = "payment"
	RoleSuperuser Role = "superuser"
)

var validRoles = map[Role]bool{
	RoleSubmitter: true,
	RoleFinance:   true,
	RoleVoucher:   true,
	RoleChecker:   true,
	RoleInitiator: true,
	RolePayment:   true,
	RoleSuperuser: true,
}

// IsValid returns true for a known designation
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Roles returns every known designation in display order
func Roles() []Role {
	return []Role{RoleSubmitter, RoleFinance, RoleVoucher, RoleChecker, RoleInitiator, RolePayment, RoleSuperuser}
}
