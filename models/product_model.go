package models

import "time"

type Product struct {
	ID          string    `bson:"_id" json:"_id"`
	UsuarioID   string    `bson:"usuario_id" json:"usuario_id"` // seller
	Titulo      string    `bson:"titulo" json:"titulo"`
	Descripcion string    `bson:"descripcion,omitempty" json:"descripcion,omitempty"`
	Categoria   string    `bson:"categoria,omitempty" json:"categoria,omitempty"`
	Precio      float64   `bson:"precio" json:"precio"`
	Stock       int       `bson:"stock" json:"stock"`
	Reportado   bool      `bson:"reportado" json:"reportado"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
