package domain

import "time"

// Roles recognized by the workflow. Admins auto-approve their own
// submissions; approvers decide documents submitted by buyers.
const (
	RoleAdmin    = "admin"
	RoleApprover = "approver"
	RoleBuyer    = "buyer"
)

type User struct {
	ID           string
	DisplayName  string
	Email        string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// CanAutoApprove reports whether a submission by this user skips the
// pending state entirely.
func (u User) CanAutoApprove() bool {
	return u.Role == RoleAdmin
}
