package models

// Identity is the authenticated caller as read from the access token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Rol   Role   `json:"rol"`
}

func (i Identity) IsAdmin() bool {
	return i.Rol == RoleAdmin
}

// Owns reports whether the caller may act on a record owned by userID.
func (i Identity) Owns(userID string) bool {
	return i.IsAdmin() || (i.ID != "" && i.ID == userID)
}
