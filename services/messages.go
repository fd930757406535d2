package services

import (
	"fmt"
	"strings"

	"mercadito-api/models"
	"mercadito-api/notifications"
)

func saleNotice(seller *models.User, order *models.Order, sold []models.Product) notifications.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", displayName(seller))
	writeSold(&b, order, sold)
	return notifications.Message{
		Destinatario: seller.Email,
		Asunto:       "¡Has realizado una venta!",
		Cuerpo:       b.String(),
	}
}

// purchaseConfirmation appends the sale section when the buyer also sold
// items in the order (sold is non-empty).
func purchaseConfirmation(buyer *models.User, payment *models.Payment, order *models.Order, bought, sold []models.Product) notifications.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", displayName(buyer))
	fmt.Fprintf(&b, "Tu pago de $%.2f (%s) para la orden %s fue confirmado.\n", payment.Monto, payment.MetodoPago, order.ID)
	for _, p := range bought {
		fmt.Fprintf(&b, "- %s ($%.2f)\n", p.Titulo, p.Precio)
	}
	if len(sold) > 0 {
		b.WriteString("\n")
		writeSold(&b, order, sold)
	}
	return notifications.Message{
		Destinatario: buyer.Email,
		Asunto:       "Confirmación de compra",
		Cuerpo:       b.String(),
	}
}

func writeSold(b *strings.Builder, order *models.Order, sold []models.Product) {
	fmt.Fprintf(b, "Se confirmó el pago de la orden %s. Productos vendidos:\n", order.ID)
	for _, p := range sold {
		fmt.Fprintf(b, "- %s ($%.2f)\n", p.Titulo, p.Precio)
	}
	if order.PuntoEncuentro != "" {
		fmt.Fprintf(b, "\nPunto de encuentro: %s\n", order.PuntoEncuentro)
	}
}

func displayName(u *models.User) string {
	if u.Nombre != "" {
		return u.Nombre
	}
	return u.Email
}
