package models

import "time"

type Role string

const (
	RoleUser   Role = "usuario"
	RoleSeller Role = "vendedor"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        string    `bson:"_id" json:"_id"`
	Nombre    string    `bson:"nombre" json:"nombre"`
	Email     string    `bson:"email" json:"email"`
	Password  string    `bson:"contrasena" json:"-"`
	Rol       Role      `bson:"rol" json:"rol"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
