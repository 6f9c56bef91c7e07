package models

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleTrainee    UserRole = "trainee"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// User is the authenticated principal resolved from the identity provider.
// It is not persisted by this service.
type User struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	AvatarURL *string  `json:"avatar_url,omitempty"`
}

func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleInstructor
}
