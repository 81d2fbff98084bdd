package room

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Role string

const (
	RolePrimaryA Role = "primaryA"
	RolePrimaryB Role = "primaryB"
	RoleAdmin    Role = "admin"
	RoleGuest    Role = "guest"
)

const (
	maxCodeLength = 12
	maxNameLength = 20
)

// ParseRole validates a role name received from a client.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(raw)) {
	case RolePrimaryA:
		return RolePrimaryA, nil
	case RolePrimaryB:
		return RolePrimaryB, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleGuest:
		return RoleGuest, nil
	}
	return "", invalid("role", "must be one of primaryA, primaryB, admin, guest")
}

// Identity is who a client claims to be. GuestName is only meaningful for
// RoleGuest and stays empty until the guest registers.
type Identity struct {
	Role      Role
	GuestName string
}

func PrimaryA() Identity { return Identity{Role: RolePrimaryA} }
func PrimaryB() Identity { return Identity{Role: RolePrimaryB} }
func Admin() Identity { return Identity{Role: RoleAdmin} }
func Guest(name string) Identity { return Identity{Role: RoleGuest, GuestName: name} }

func (id Identity) IsPrimary() bool {
	return id.Role == RolePrimaryA || id.Role == RolePrimaryB
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

func (id Identity) String() string {
	if id.Role == RoleGuest && id.GuestName != "" {
		return "guest:" + id.GuestName
	}
	return string(id.Role)
}

// NormalizeCode trims and upper-cases a room code.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", invalid("room code", "is required")
	}
	if utf8.RuneCountInString(code) > maxCodeLength {
		return "", invalid("room code", "is too long")
	}
	for _, r := range code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return "", invalid("room code", "contains unsupported characters")
		}
	}
	return code, nil
}

// NormalizeGuestName collapses whitespace and checks a guest display name.
// Names become field path segments, so '/' is rejected.
func NormalizeGuestName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return "", invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", invalid("name", "must be 20 characters or fewer")
	}
	for _, r := range name {
		if r == '/' || unicode.IsControl(r) {
			return "", invalid("name", "contains unsupported characters")
		}
	}
	return name, nil
}
