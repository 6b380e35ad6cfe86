package households

import "time"

// Role define qué puede hacer un miembro dentro del hogar.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleCaregiver Role = "caregiver"
	RoleViewer    Role = "viewer"
)

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Household agrupa animales y cuidadores. Timezone es el fallback
// para animales sin zona propia.
type Household struct {
	ID       string
	Name     string
	Timezone string // IANA, p.ej. "America/New_York"

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Membership struct {
	ID string

	HouseholdID string

	UserID        string
	InviterUserID string

	Role   Role
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// CanWrite indica si el rol permite registrar/editar datos clínicos.
func CanWrite(m Membership) bool {
	return m.Status == StatusActive && (m.Role == RoleOwner || m.Role == RoleCaregiver)
}

func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleCaregiver, RoleViewer:
		return true
	}
	return false
}
