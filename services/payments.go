package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mercadito-api/models"
	"mercadito-api/notifications"
	"mercadito-api/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	RoleSeller = "vendedor"
	RoleBuyer  = "comprador"
)

// ConfirmationObserver is told about each confirmation and each dispatch
// attempt. metrics.Metrics implements it.
type ConfirmationObserver interface {
	PaymentConfirmed()
	NotificationSent(role string, err error)
}

type noopObserver struct{}

func (noopObserver) PaymentConfirmed()              {}
func (noopObserver) NotificationSent(string, error) {}

type PaymentConfig struct {
	// EnforceOwnership limits confirmation to the payment's buyer or an admin.
	EnforceOwnership bool
}

type PaymentService struct {
	payments   store.Payments
	orders     store.Orders
	products   store.Products
	users      store.Users
	tx         store.Transactor
	dispatcher notifications.Dispatcher
	log        logrus.FieldLogger
	cfg        PaymentConfig

	Observer ConfirmationObserver
	Now      func() time.Time
}

func NewPaymentService(s store.Stores, d notifications.Dispatcher, log logrus.FieldLogger, cfg PaymentConfig) *PaymentService {
	return &PaymentService{
		payments:   s.Payments,
		orders:     s.Orders,
		products:   s.Products,
		users:      s.Users,
		tx:         s.Tx,
		dispatcher: d,
		log:        log,
		cfg:        cfg,
		Observer:   noopObserver{},
		Now:        time.Now,
	}
}

// DispatchResult is the outcome of one notification attempt.
type DispatchResult struct {
	Destinatario string `json:"destinatario"`
	UsuarioID    string `json:"usuario_id"`
	Rol          string `json:"rol"`
	Enviado      bool   `json:"enviado"`
	Error        string `json:"error,omitempty"`

	Err error `json:"-"`
}

type ConfirmationResult struct {
	Pago           *models.Payment  `json:"pago"`
	Orden          *models.Order    `json:"-"`
	Notificaciones []DispatchResult `json:"notificaciones"`
}

// Failed counts the dispatches that did not go through.
func (r *ConfirmationResult) Failed() int {
	n := 0
	for _, d := range r.Notificaciones {
		if !d.Enviado {
			n++
		}
	}
	return n
}

type recipient struct {
	user *models.User
	role string
	msg  notifications.Message
}

// ConfirmPayment moves a pending payment to completed, marks its order as
// paid and notifies every distinct seller in the order plus the buyer.
// Notification failures are reported in the result, never as the error.
func (s *PaymentService) ConfirmPayment(ctx context.Context, caller models.Identity, paymentID string) (*ConfirmationResult, error) {
	log := s.log.WithField("pago_id", paymentID)

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, notFound("pago", paymentID, err)
	}
	if s.cfg.EnforceOwnership && !caller.Owns(payment.UsuarioID) {
		return nil, fmt.Errorf("pago %s: %w", paymentID, ErrForbidden)
	}
	if payment.Estado == models.PaymentCompleted {
		return nil, fmt.Errorf("pago %s: %w", paymentID, ErrAlreadyConfirmed)
	}

	order, err := s.orders.FindByID(ctx, payment.OrdenID)
	if err != nil {
		return nil, notFound("orden", payment.OrdenID, err)
	}

	var bought []models.Product
	bySeller := map[string][]models.Product{}
	for _, productID := range order.ProductosID {
		product, err := s.products.FindByID(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			log.WithField("producto_id", productID).Warn("Producto de la orden no encontrado, se omite")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", productID, err)
		}
		bought = append(bought, *product)
		bySeller[product.UsuarioID] = append(bySeller[product.UsuarioID], *product)
	}

	buyerID := payment.UsuarioID
	if buyerID == "" {
		buyerID = order.UsuarioID
	}
	buyer, err := s.lookupUser(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	sellerIDs := make([]string, 0, len(bySeller))
	for id := range bySeller {
		sellerIDs = append(sellerIDs, id)
	}
	sort.Strings(sellerIDs)

	var recipients []recipient
	for _, sellerID := range sellerIDs {
		// A buyer who also sold items in this order gets a single message.
		if buyer != nil && sellerID == buyer.ID {
			continue
		}
		seller, err := s.lookupUser(ctx, sellerID)
		if err != nil {
			return nil, err
		}
		if seller == nil {
			log.WithField("vendedor_id", sellerID).Warn("Vendedor no encontrado, no se notifica")
			continue
		}
		recipients = append(recipients, recipient{
			user: seller,
			role: RoleSeller,
			msg:  saleNotice(seller, order, bySeller[sellerID]),
		})
	}

	if buyer == nil {
		log.WithField("comprador_id", buyerID).Warn("Comprador no encontrado, no se notifica")
	} else {
		recipients = append(recipients, recipient{
			user: buyer,
			role: RoleBuyer,
			msg:  purchaseConfirmation(buyer, payment, order, bought, bySeller[buyer.ID]),
		})
	}

	now := s.Now().UTC()
	payment.Estado = models.PaymentCompleted
	payment.FechaPago = &now

	if order.Estado != models.OrderPaid {
		order.Historial = append(order.Historial, models.OrderHistory{
			Date:     now,
			Field:    "estado",
			OldValue: order.Estado,
			NewValue: models.OrderPaid,
		})
	}
	order.Estado = models.OrderPaid

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.payments.Complete(ctx, payment); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("pago %s: %w", paymentID, ErrAlreadyConfirmed)
			}
			return fmt.Errorf("save payment: %w", err)
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrAlreadyConfirmed) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("confirm payment %s: %w", paymentID, err)
	}
	s.Observer.PaymentConfirmed()

	results := s.dispatch(ctx, recipients)
	for _, r := range results {
		s.Observer.NotificationSent(r.Rol, r.Err)
		if r.Err != nil {
			log.WithFields(logrus.Fields{
				"destinatario": r.Destinatario,
				"rol":          r.Rol,
			}).WithError(r.Err).Warn("No se pudo enviar la notificación")
		}
	}

	log.WithFields(logrus.Fields{
		"orden_id":       order.ID,
		"notificaciones": len(results),
	}).Info("Pago confirmado")

	return &ConfirmationResult{Pago: payment, Orden: order, Notificaciones: results}, nil
}

// dispatch sends every message concurrently. Results keep the order of
// recipients.
func (s *PaymentService) dispatch(ctx context.Context, recipients []recipient) []DispatchResult {
	results := make([]DispatchResult, len(recipients))

	var wg sync.WaitGroup
	for i, r := range recipients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.dispatcher.Send(ctx, r.msg)
			res := DispatchResult{
				Destinatario: r.msg.Destinatario,
				UsuarioID:    r.user.ID,
				Rol:          r.role,
				Enviado:      err == nil,
				Err:          err,
			}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
		}()
	}
	wg.Wait()
	return results
}

// lookupUser returns nil, nil for a missing user.
func (s *PaymentService) lookupUser(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, nil
	}
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return user, nil
}

type CheckoutInput struct {
	OrdenID    string               `json:"orden_id"`
	MetodoPago models.PaymentMethod `json:"metodo_pago"`
	Monto      float64              `json:"monto"`
}

// Checkout records a pending payment for one of the caller's pending orders.
func (s *PaymentService) Checkout(ctx context.Context, caller models.Identity, in CheckoutInput) (*models.Payment, error) {
	if strings.TrimSpace(in.OrdenID) == "" || !in.MetodoPago.Valid() || in.Monto <= 0 {
		return nil, fmt.Errorf("checkout: %w", ErrInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, in.OrdenID)
	if err != nil {
		return nil, notFound("orden", in.OrdenID, err)
	}
	if !caller.Owns(order.UsuarioID) {
		return nil, fmt.Errorf("orden %s: %w", in.OrdenID, ErrForbidden)
	}
	if order.Estado != models.OrderPending {
		return nil, fmt.Errorf("orden %s: %w", in.OrdenID, ErrOrderNotPending)
	}
	if !decimal.NewFromFloat(in.Monto).Round(2).Equal(decimal.NewFromFloat(order.Total).Round(2)) {
		return nil, fmt.Errorf("monto %.2f no coincide con el total %.2f: %w", in.Monto, order.Total, ErrInvalidInput)
	}

	payment := &models.Payment{
		ID:         store.NewID(),
		OrdenID:    order.ID,
		UsuarioID:  order.UsuarioID,
		Monto:      in.Monto,
		MetodoPago: in.MetodoPago,
		Estado:     models.PaymentPending,
		CreatedAt:  s.Now().UTC(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

func (s *PaymentService) History(ctx context.Context, caller models.Identity) ([]models.Payment, error) {
	return s.payments.ListByUser(ctx, caller.ID)
}

func (s *PaymentService) Get(ctx context.Context, caller models.Identity, id string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("pago", id, err)
	}
	if !caller.Owns(payment.UsuarioID) {
		return nil, fmt.Errorf("pago %s: %w", id, ErrForbidden)
	}
	return payment, nil
}

// Delete removes a payment. Only admins may delete a completed one.
func (s *PaymentService) Delete(ctx context.Context, caller models.Identity, id string) error {
	payment, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if payment.Estado == models.PaymentCompleted && !caller.IsAdmin() {
		return fmt.Errorf("pago %s: %w", id, ErrForbidden)
	}
	if err := s.payments.Delete(ctx, id); err != nil {
		return notFound("pago", id, err)
	}
	return nil
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", kind, id, err)
}
