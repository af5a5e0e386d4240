package ledger

// Op names an operation for the authorization table.
type Op string

const (
	OpPause          Op = "system.pause"
	OpUnpause        Op = "system.unpause"
	OpMint           Op = "token.mint"
	OpBurn           Op = "token.burn"
	OpRevokeLicense  Op = "license.revoke"
	OpExtendLicense  Op = "license.extend"
	OpSetPlatformFee Op = "platform.set_fee"
	OpRemoveDataset  Op = "dataset.remove"
)

// opRoles is the authorization policy in one place: every role-gated
// operation and the role it demands. Operations with additional
// ownership rules (dataset removal by the owner, extension by the
// dataset owner) consult this table for their role path only.
var opRoles = map[Op]Role{
	OpPause:          RoleDefaultAdmin,
	OpUnpause:        RoleDefaultAdmin,
	OpMint:           RoleMinter,
	OpBurn:           RoleBurner,
	OpRevokeLicense:  RoleCompliance,
	OpExtendLicense:  RoleCompliance,
	OpSetPlatformFee: RoleAdmin,
	OpRemoveDataset:  RoleCompliance,
}

// authorize checks the policy table. Callers hold the ledger lock.
func (l *Ledger) authorize(actor string, op Op) error {
	role, ok := opRoles[op]
	if !ok {
		return reject(KindUnauthorized, "operation %s has no authorization policy", op)
	}
	if !l.holdsRole(role, actor) {
		return reject(KindUnauthorized, "account %s is missing role %s", actor, role)
	}
	return nil
}

// RequiredRole exposes the policy table for auditing and for the HTTP
// layer's documentation endpoints.
func RequiredRole(op Op) (Role, bool) {
	role, ok := opRoles[op]
	return role, ok
}
