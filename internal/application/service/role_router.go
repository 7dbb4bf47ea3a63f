package service

import (
	"fmt"

	"github.com/garyjia/zoompay/internal/application/port"
	appwf "github.com/garyjia/zoompay/internal/application/workflow"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Queue names a listing a designation may read
type Queue string

const (
	QueueMyReceipts       Queue = "my_receipts"
	QueueFinance          Queue = "finance"
	QueueApprovedReceipts Queue = "approved_receipts"
	QueueMyVouchers       Queue = "my_vouchers"
	QueueChecker          Queue = "checker"
	QueueToInitiate       Queue = "to_initiate"
	QueueAwaitingProof    Queue = "awaiting_proof"
	QueuePayment          Queue = "payment"
)

// queueDef is the store query behind a queue
type queueDef struct {
	kind      domainwf.Kind
	roles     []domainwf.Role
	statuses  []domainwf.State
	orderBy   port.Order
	byCreator bool
	byCompany bool
}

var queues = map[Queue]queueDef{
	QueueMyReceipts: {
		kind:      domainwf.KindReceipt,
		roles:     []domainwf.Role{domainwf.RoleSubmitter},
		orderBy:   port.OrderCreatedAt,
		byCreator: true,
	},
	QueueFinance: {
		kind:      domainwf.KindReceipt,
		roles:     []domainwf.Role{domainwf.RoleFinance},
		orderBy:   port.OrderCreatedAt,
		byCompany: true,
	},
	QueueApprovedReceipts: {
		kind:     domainwf.KindReceipt,
		roles:    []domainwf.Role{domainwf.RoleVoucher},
		statuses: []domainwf.State{domainwf.StateApproved},
		orderBy:  port.OrderApprovedAt,
	},
	QueueMyVouchers: {
		kind:      domainwf.KindVoucher,
		roles:     []domainwf.Role{domainwf.RoleVoucher},
		orderBy:   port.OrderCreatedAt,
		byCreator: true,
	},
	QueueChecker: {
		kind:     domainwf.KindVoucher,
		roles:    []domainwf.Role{domainwf.RoleChecker, domainwf.RoleSuperuser},
		statuses: []domainwf.State{domainwf.StateVoucherCreated, domainwf.StateChecked, domainwf.StateRejected},
		orderBy:  port.OrderCreatedAt,
	},
	QueueToInitiate: {
		kind:     domainwf.KindVoucher,
		roles:    []domainwf.Role{domainwf.RoleInitiator, domainwf.RoleSuperuser},
		statuses: []domainwf.State{domainwf.StateChecked},
		orderBy:  port.OrderCheckedAt,
	},
	QueueAwaitingProof: {
		kind:     domainwf.KindVoucher,
		roles:    []domainwf.Role{domainwf.RoleInitiator, domainwf.RoleSuperuser},
		statuses: []domainwf.State{domainwf.StatePaymentReleased},
		orderBy:  port.OrderReleasedAt,
	},
	QueuePayment: {
		kind:     domainwf.KindVoucher,
		roles:    []domainwf.Role{domainwf.RolePayment, domainwf.RoleSuperuser},
		statuses: []domainwf.State{domainwf.StateInitiated, domainwf.StatePaymentReleased, domainwf.StateRejected},
		orderBy:  port.OrderCreatedAt,
	},
}

// queueOrder fixes the order queues are reported in
var queueOrder = []Queue{
	QueueMyReceipts,
	QueueFinance,
	QueueApprovedReceipts,
	QueueMyVouchers,
	QueueChecker,
	QueueToInitiate,
	QueueAwaitingProof,
	QueuePayment,
}

// Permissions is what a designation may see and do
type Permissions struct {
	Role            domainwf.Role      `json:"role"`
	Queues          []Queue            `json:"queues"`
	ReceiptTriggers []domainwf.Trigger `json:"receipt_triggers"`
	VoucherTriggers []domainwf.Trigger `json:"voucher_triggers"`
	CanComment      bool               `json:"can_comment"`
	CanExport       bool               `json:"can_export"`
	CanAdminister   bool               `json:"can_administer"`
}

// RoleRouter maps a designation to the queries and operations it is entitled to.
// It only decides what to present; the lifecycle engine re-checks every operation.
type RoleRouter interface {
	Permissions(role domainwf.Role) Permissions
	CanRead(role domainwf.Role, q Queue) bool
	// Authorize returns ErrUnauthorized when role may not read q
	Authorize(role domainwf.Role, q Queue) error
	// Actions lists the triggers role may fire on a record currently in status
	Actions(role domainwf.Role, kind domainwf.Kind, status domainwf.State) []domainwf.Trigger
}

type roleRouterImpl struct{}

// NewRoleRouter creates a RoleRouter
func NewRoleRouter() RoleRouter {
	return roleRouterImpl{}
}

func (roleRouterImpl) Permissions(role domainwf.Role) Permissions {
	p := Permissions{
		Role:            role,
		Queues:          []Queue{},
		ReceiptTriggers: []domainwf.Trigger{},
		VoucherTriggers: []domainwf.Trigger{},
	}
	if !role.IsValid() {
		return p
	}

	for _, q := range queueOrder {
		if hasRole(queues[q].roles, role) {
			p.Queues = append(p.Queues, q)
		}
	}
	p.ReceiptTriggers = append(p.ReceiptTriggers, domainwf.TriggersForRole(domainwf.KindReceipt, role)...)
	p.VoucherTriggers = append(p.VoucherTriggers, domainwf.TriggersForRole(domainwf.KindVoucher, role)...)
	p.CanComment = commentRoles[role]
	p.CanExport = exportRoles[role]
	p.CanAdminister = role == domainwf.RoleSuperuser

	return p
}

func (r roleRouterImpl) CanRead(role domainwf.Role, q Queue) bool {
	qd, ok := queues[q]
	return ok && hasRole(qd.roles, role)
}

func (r roleRouterImpl) Authorize(role domainwf.Role, q Queue) error {
	if _, ok := queues[q]; !ok {
		return domainwf.NewValidationError("queue", fmt.Sprintf("unknown queue %q", q))
	}
	if !r.CanRead(role, q) {
		return fmt.Errorf("%w: role %q cannot read %s", domainwf.ErrUnauthorized, role, q)
	}
	return nil
}

func (r roleRouterImpl) Actions(role domainwf.Role, kind domainwf.Kind, status domainwf.State) []domainwf.Trigger {
	actions := []domainwf.Trigger{}
	if !role.IsValid() || !status.ValidFor(kind) {
		return actions
	}

	machine := appwf.BuildStateMachine(kind, status)
	for _, t := range machine.PermittedTriggers() {
		if domainwf.Authorize(kind, t, role) == nil {
			actions = append(actions, t)
		}
	}
	return actions
}

var commentRoles = map[domainwf.Role]bool{
	domainwf.RoleVoucher:   true,
	domainwf.RoleChecker:   true,
	domainwf.RoleInitiator: true,
	domainwf.RolePayment:   true,
}

var exportRoles = map[domainwf.Role]bool{
	domainwf.RoleVoucher:   true,
	domainwf.RoleChecker:   true,
	domainwf.RoleInitiator: true,
	domainwf.RolePayment:   true,
	domainwf.RoleSuperuser: true,
}

func hasRole(roles []domainwf.Role, role domainwf.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
