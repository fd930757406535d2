package models

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodCard   PaymentMethod = "tarjeta"
	MethodPaypal PaymentMethod = "paypal"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCard || m == MethodPaypal
}

type Payment struct {
	ID         string        `bson:"_id" json:"_id"`
	OrdenID    string        `bson:"orden_id" json:"orden_id"`
	UsuarioID  string        `bson:"usuario_id" json:"usuario_id"` // payer
	Monto      float64       `bson:"monto" json:"monto"`
	MetodoPago PaymentMethod `bson:"metodo_pago" json:"metodo_pago"`
	Estado     PaymentStatus `bson:"estado" json:"estado"`
	FechaPago  *time.Time    `bson:"fecha_pago,omitempty" json:"fecha_pago,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
}
