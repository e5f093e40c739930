package models

import "fmt"

// Role is a closed set. Anything outside the three variants is rejected at
// parse time so an unrecognized value can never slip through an authorization
// check.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleNormalUser Role = "normal_user"
	RoleStoreOwner Role = "store_owner"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleNormalUser:
		return RoleNormalUser, nil
	case RoleStoreOwner:
		return RoleStoreOwner, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleNormalUser, RoleStoreOwner:
		return true
	}
	return false
}
