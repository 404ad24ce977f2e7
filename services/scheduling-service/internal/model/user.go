package model

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RolePatient Role = "PATIENT"
)

type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID string
	Role   Role
	Email  string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
