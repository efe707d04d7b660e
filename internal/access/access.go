// Package access holds the per-role field-editability policy. The whole
// policy is one declarative table consulted from one place; add/update/render
// call sites must never carry their own field lists.
package access

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RolePlanner     Role = "PLANNER"
	RoleExecutor    Role = "EXECUTOR"
	RoleProcurement Role = "PROCUREMENT"
)

// Field names match the JSON field keys of the two record kinds.
const (
	FieldEngineeringItem      = "engineeringItem"
	FieldScheduledRequestDate = "scheduledRequestDate"
	FieldActualRequestDate    = "actualRequestDate"
	FieldSiteOrganizer        = "siteOrganizer"
	FieldProcurementOrganizer = "procurementOrganizer"
	FieldReturnDate           = "returnDate"
	FieldReturnReason         = "returnReason"
	FieldResubmissionDate     = "resubmissionDate"
	FieldContractorConfirm    = "contractorConfirmDate"
	FieldContractorName       = "contractorName"
	FieldRemarks              = "remarks"

	FieldItem               = "item"
	FieldCategory           = "category"
	FieldScheduledStartDate = "scheduledStartDate"
	FieldScheduledEndDate   = "scheduledEndDate"
	FieldActualStartDate    = "actualStartDate"
	FieldActualEndDate      = "actualEndDate"
)

// displayNameFields are the structural fields that identify a record in
// lists and exports. The optional structural lock (see Policy) applies to
// exactly these and nothing else.
var displayNameFields = map[string]struct{}{
	FieldEngineeringItem: {},
	FieldItem:            {},
}

// editable is the single (role, field) table. ADMIN is handled in code, not
// in the table; the non-admin roles own disjoint field subsets.
var editable = map[Role]map[string]struct{}{
	RolePlanner: {
		FieldEngineeringItem:      {},
		FieldScheduledRequestDate: {},
		FieldSiteOrganizer:        {},
		FieldItem:                 {},
		FieldCategory:             {},
		FieldScheduledStartDate:   {},
		FieldScheduledEndDate:     {},
	},
	RoleExecutor: {
		FieldActualRequestDate: {},
		FieldActualStartDate:   {},
		FieldActualEndDate:     {},
		FieldRemarks:           {},
	},
	RoleProcurement: {
		FieldProcurementOrganizer: {},
		FieldReturnDate:           {},
		FieldReturnReason:         {},
		FieldResubmissionDate:     {},
		FieldContractorConfirm:    {},
		FieldContractorName:       {},
	},
}

// Policy is the deployment configuration of the editability matrix.
type Policy struct {
	// LockDisplayName denies every non-admin edit of a record's
	// display-name field, even for the role that otherwise owns it.
	LockDisplayName bool
}

// CanEditField reports whether role may write field. A false answer is a
// UI-permission gate, not an integrity error: callers drop the write
// silently.
func (p Policy) CanEditField(role Role, field string) bool {
	if role == RoleAdmin {
		return true
	}
	if p.LockDisplayName {
		if _, locked := displayNameFields[field]; locked {
			return false
		}
	}
	fields, ok := editable[role]
	if !ok {
		return false
	}
	_, ok = fields[field]
	return ok
}

// CanAddRecord reports whether role may create records.
func (p Policy) CanAddRecord(role Role) bool {
	return role == RoleAdmin || role == RolePlanner
}

// CanDeleteRecord reports whether role may delete records.
func (p Policy) CanDeleteRecord(role Role) bool {
	return role == RoleAdmin || role == RolePlanner
}

// Normalize maps arbitrary input to a known role, defaulting to the most
// restricted one.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleAdmin, RolePlanner, RoleExecutor, RoleProcurement:
		return Role(role)
	default:
		return RoleExecutor
	}
}
