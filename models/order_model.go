package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pendiente"
	OrderPaid      OrderStatus = "pagado"
	OrderCancelled OrderStatus = "cancelado"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ProductoID     string  `bson:"producto_id" json:"producto_id"`
	Cantidad       int     `bson:"cantidad" json:"cantidad"`
	PrecioUnitario float64 `bson:"precio_unitario" json:"precio_unitario"`
}

type OrderHistory struct {
	Date     time.Time   `bson:"date" json:"date"`
	Field    string      `bson:"field" json:"field"`
	OldValue interface{} `bson:"oldValue" json:"oldValue"`
	NewValue interface{} `bson:"newValue" json:"newValue"`
}

type Order struct {
	ID             string         `bson:"_id" json:"_id"`
	UsuarioID      string         `bson:"usuario_id" json:"usuario_id"` // buyer
	ProductosID    []string       `bson:"productos_id" json:"productos_id"`
	Detalle        []OrderItem    `bson:"detalle,omitempty" json:"detalle,omitempty"`
	Total          float64        `bson:"total" json:"total"`
	MetodoPago     string         `bson:"metodo_pago,omitempty" json:"metodo_pago,omitempty"`
	PuntoEncuentro string         `bson:"punto_encuentro,omitempty" json:"punto_encuentro,omitempty"`
	Estado         OrderStatus    `bson:"estado" json:"estado"`
	Historial      []OrderHistory `bson:"historial,omitempty" json:"historial,omitempty"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
}
