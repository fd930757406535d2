package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"mercadito-api/models"
	"mercadito-api/notifications"
	"mercadito-api/store"
	"mercadito-api/store/memory"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	sent    []notifications.Message
	failFor map[string]error
}

func (d *recordingDispatcher) Send(_ context.Context, msg notifications.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
	return d.failFor[msg.Destinatario]
}

func (d *recordingDispatcher) recipients() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.sent))
	for _, m := range d.sent {
		out = append(out, m.Destinatario)
	}
	return out
}

type countingObserver struct {
	mu        sync.Mutex
	confirmed int
	sent      map[string]int
	failed    map[string]int
}

func (o *countingObserver) PaymentConfirmed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.confirmed++
}

func (o *countingObserver) NotificationSent(role string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failed[role]++
		return
	}
	o.sent[role]++
}

var fixedNow = time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)

type fixture struct {
	mem        *memory.Store
	dispatcher *recordingDispatcher
	logHook    *test.Hook
	svc        *PaymentService
}

func newFixture(t *testing.T, cfg PaymentConfig) *fixture {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()

	users := []models.User{
		{ID: "comprador123", Email: "comprador@test.com", Rol: models.RoleUser},
		{ID: "vendedor1", Email: "vendedor1@test.com", Rol: models.RoleSeller},
		{ID: "vendedor2", Email: "vendedor2@test.com", Rol: models.RoleSeller},
		{ID: "admin1", Email: "admin@test.com", Rol: models.RoleAdmin},
	}
	for i := range users {
		require.NoError(t, mem.UserStore.Create(ctx, &users[i]))
	}
	products := []models.Product{
		{ID: "prod1", Titulo: "Producto 1", Precio: 100, UsuarioID: "vendedor1"},
		{ID: "prod2", Titulo: "Producto 2", Precio: 200, UsuarioID: "vendedor2"},
		{ID: "prod3", Titulo: "Producto 3", Precio: 50, UsuarioID: "vendedor1"},
	}
	for i := range products {
		require.NoError(t, mem.ProductStore.Create(ctx, &products[i]))
	}
	require.NoError(t, mem.OrderStore.Create(ctx, &models.Order{
		ID:          "orden123",
		UsuarioID:   "comprador123",
		ProductosID: []string{"prod1", "prod2"},
		Total:       300,
		Estado:      models.OrderPending,
	}))
	require.NoError(t, mem.PaymentStore.Create(ctx, &models.Payment{
		ID:         "pago123",
		OrdenID:    "orden123",
		UsuarioID:  "comprador123",
		Monto:      300,
		MetodoPago: models.MethodCard,
		Estado:     models.PaymentPending,
	}))

	log, hook := test.NewNullLogger()
	log.SetOutput(io.Discard)
	d := &recordingDispatcher{failFor: map[string]error{}}
	svc := NewPaymentService(mem.Stores(), d, log, cfg)
	svc.Now = func() time.Time { return fixedNow }

	return &fixture{mem: mem, dispatcher: d, logHook: hook, svc: svc}
}

func (f *fixture) addOrder(t *testing.T, orderID, paymentID string, productIDs ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.mem.OrderStore.Create(ctx, &models.Order{
		ID: orderID, UsuarioID: "comprador123", ProductosID: productIDs, Estado: models.OrderPending,
	}))
	require.NoError(t, f.mem.PaymentStore.Create(ctx, &models.Payment{
		ID: paymentID, OrdenID: orderID, UsuarioID: "comprador123", Monto: 1, Estado: models.PaymentPending,
	}))
}

var buyer = models.Identity{ID: "comprador123", Email: "comprador@test.com", Rol: models.RoleUser}

func TestConfirmPaymentNotifiesEachSellerAndBuyer(t *testing.T) {
	f := newFixture(t, PaymentConfig{EnforceOwnership: true})

	res, err := f.svc.ConfirmPayment(context.Background(), buyer, "pago123")
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"vendedor1@test.com", "vendedor2@test.com", "comprador@test.com"},
		f.dispatcher.recipients())
	require.Len(t, res.Notificaciones, 3)
	assert.Equal(t, 0, res.Failed())

	// sellers sorted by id, buyer last
	assert.Equal(t, "vendedor1@test.com", res.Notificaciones[0].Destinatario)
	assert.Equal(t, RoleSeller, res.Notificaciones[0].Rol)
	assert.Equal(t, "vendedor2@test.com", res.Notificaciones[1].Destinatario)
	assert.Equal(t, "comprador@test.com", res.Notificaciones[2].Destinatario)
	assert.Equal(t, RoleBuyer, res.Notificaciones[2].Rol)
}

func TestConfirmPaymentUpdatesPaymentAndOrder(t *testing.T) {
	f := newFixture(t, PaymentConfig{EnforceOwnership: true})
	ctx := context.Background()

	res, err := f.svc.ConfirmPayment(ctx, buyer, "pago123")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, res.Pago.Estado)
	require.NotNil(t, res.Pago.FechaPago)
	assert.Equal(t, fixedNow, *res.Pago.FechaPago)

	stored, err := f.mem.PaymentStore.FindByID(ctx, "pago123")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, stored.Estado)

	order, err := f.mem.OrderStore.FindByID(ctx, "orden123")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Estado)
	require.Len(t, order.Historial, 1)
	assert.Equal(t, "estado", order.Historial[0].Field)
}

func TestConfirmPaymentDeduplicatesSellers(t *testing.T) {
	f := newFixture(t, PaymentConfig{})
	f.addOrder(t, "orden-dup", "pago-dup", "prod1", "prod3")

	res, err := f.svc.ConfirmPayment(context.Background(), buyer, "pago-dup")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"vendedor1@test.com", "comprador@test.com"}, f.dispatcher.recipients())
	assert.Len(t, res.Notificaciones, 2)
}

func TestConfirmPaymentSellerCountProperty(t *testing.T) {
	cases := []struct {
		name     string
		products []string
		sellers  int
	}{
		{"no products", nil, 0},
		{"one product", []string{"prod2"}, 1},
		{"same seller twice", []string{"prod1", "prod3"}, 1},
		{"repeated product", []string{"prod1", "prod1", "prod1"}, 1},
		{"two sellers with repeats", []string{"prod1", "prod2", "prod3", "prod2"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, PaymentConfig{})
			f.addOrder(t, "orden-x", "pago-x", tc.products...)

			res, err := f.svc.ConfirmPayment(context.Background(), buyer, "pago-x")
			require.NoError(t, err)

			sellers, buyers := 0, 0
			for _, n := range res.Notificaciones {
				switch n.Rol {
				case RoleSeller:
					sellers++
				case RoleBuyer:
					buyers++
				}
			}
			assert.Equal(t, tc.sellers, sellers)
			assert.Equal(t, 1, buyers)
			assert.Len(t, f.dispatcher.recipients(), tc.sellers+1)
		})
	}
}

func TestConfirmPaymentNotFound(t *testing.T) {
	f := newFixture(t, PaymentConfig{EnforceOwnership: true})
	ctx := context.Background()

	_, err := f.svc.ConfirmPayment(ctx, buyer, "no-existe")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.dispatcher.recipients())
	payment, _ := f.mem.PaymentStore.FindByID(ctx, "pago123")
	assert.Equal(t, models.PaymentPending, payment.Estado)
	order, _ := f.mem.OrderStore.FindByID(ctx, "orden123")
	assert.Equal(t, models.OrderPending, order.Estado)
}

func TestConfirmPaymentMissingOrder(t *testing.T) {
	f := newFixture(t, PaymentConfig{})
	ctx := context.Background()
	require.NoError(t, f.mem.PaymentStore.Create(ctx, &models.Payment{
		ID: "pago-huerfano", OrdenID: "orden-borrada", UsuarioID: "comprador123", Estado: models.PaymentPending,
	}))

	_, err := f.svc.ConfirmPayment(ctx, buyer, "pago-huerfano")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.dispatcher.recipients())
	payment, _ := f.mem.PaymentStore.FindByID(ctx, "pago-huerfano")
	assert.Equal(t, models.PaymentPending, payment.Estado)
}

func TestConfirmPaymentSkipsMissingProductsAndUsers(t *testing.T) {
	f := newFixture(t, PaymentConfig{})
	ctx := context.Background()
	require.NoError(t, f.mem.ProductStore.Create(ctx, &models.Product{
		ID: "prod-fantasma", Titulo: "Sin vendedor", UsuarioID: "vendedor-borrado",
	}))
	f.addOrder(t, "orden-y", "pago-y", "prod1", "prod-inexistente", "prod-fantasma")

	res, err := f.svc.ConfirmPayment(ctx, buyer, "pago-y")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"vendedor1@test.com", "comprador@test.com"}, f.dispatcher.recipients())
	assert.Equal(t, models.PaymentCompleted, res.Pago.Estado)
	assert.Len(t, f.logHook.AllEntries(), 3) // two skips + the confirmation
}

func TestConfirmPaymentMissingBuyerStillConfirms(t *testing.T) {
	f := newFixture(t, PaymentConfig{})
	ctx := context.Background()
	require.NoError(t, f.mem.UserStore.Delete(ctx, "comprador123"))

	res, err := f.svc.ConfirmPayment(ctx, buyer, "pago123")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vendedor1@test.com", "vendedor2@test.com"}, f.dispatcher.recipients())
	assert.Equal(t, models.PaymentCompleted, res.Pago.Estado)
}

func TestConfirmPaymentDispatchFailureDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, PaymentConfig{EnforceOwnership: true})
	f.dispatcher.failFor["vendedor1@test.com"] = errors.New("smtp caído")
	obs := &countingObserver{sent: map[string]int{}, failed: map[string]int{}}
	f.svc.Observer = obs

	res, err := f.svc.ConfirmPayment(context.Background(), buyer, "pago123")
	require.NoError(t, err)

	assert.Len(t, f.dispatcher.recipients(), 3)
	assert.Equal(t, 1, res.Failed())
	assert.False(t, res.Notificaciones[0].Enviado)
	assert.Equal(t, "smtp caído", res.Notificaciones[0].Error)
	assert.True(t, res.Notificaciones[1].Enviado)
	assert.True(t, res.Notificaciones[2].Enviado)

	assert.Equal(t, 1, obs.confirmed)
	assert.Equal(t, 1, obs.failed[RoleSeller])
	assert.Equal(t, 1, obs.sent[RoleSeller])
	assert.Equal(t, 1, obs.sent[RoleBuyer])

	var warned bool
	for _, e := range f.logHook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["destinatario"] == "vendedor1@test.com" {
			warned = true
		}
	}
	assert.True(t, warned, "failed dispatch must be logged")
}

func TestConfirmPaymentAlreadyCompleted(t *testing.T) {
	f := newFixture(t, PaymentConfig{EnforceOwnership: true})
	ctx := context.Background()

	_, err := f.svc.ConfirmPayment(ctx, buyer, "pago123")
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(ctx, buyer, "pago123")
	require.ErrorIs(t, err, ErrAlreadyConfirmed)

	assert.Len(t, f.dispatcher.recipients(), 3, "no notifications on re-confirmation")
}

// barrierTx holds every caller until all of them have read the payment.
type barrierTx struct{ ready sync.WaitGroup }

func (b *barrierTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	b.ready.Done()
	b.ready.Wait()
	return fn(ctx)
}

func TestConfirmPaymentConcurrentConfirmations(t *testing.T) {
	f := newFixture(t, PaymentConfig{EnforceOwnership: true})
	tx := &barrierTx{}
	tx.ready.Add(2)
	f.svc.tx = tx

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.ConfirmPayment(context.Background(), buyer, "pago123")
		}()
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyConfirmed):
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.Len(t, f.dispatcher.recipients(), 3, "only the winning confirmation notifies")
}

func TestConfirmPaymentBuyerAlsoSeller(t *testing.T) {
	f := newFixture(t, PaymentConfig{EnforceOwnership: true})
	ctx := context.Background()
	require.NoError(t, f.mem.ProductStore.Create(ctx, &models.Product{
		ID: "prod-propio", Titulo: "Producto propio", Precio: 10, UsuarioID: "comprador123",
	}))
	f.addOrder(t, "orden-mixta", "pago-mixto", "prod1", "prod-propio")

	res, err := f.svc.ConfirmPayment(ctx, buyer, "pago-mixto")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"vendedor1@test.com", "comprador@test.com"}, f.dispatcher.recipients())
	require.Len(t, res.Notificaciones, 2)
	assert.Equal(t, RoleSeller, res.Notificaciones[0].Rol)
	assert.Equal(t, "comprador@test.com", res.Notificaciones[1].Destinatario)
	assert.Equal(t, RoleBuyer, res.Notificaciones[1].Rol)

	var body string
	for _, m := range f.dispatcher.sent {
		if m.Destinatario == "comprador@test.com" {
			body = m.Cuerpo
		}
	}
	assert.Contains(t, body, "fue confirmado")
	assert.Contains(t, body, "Productos vendidos")
	assert.Contains(t, body, "Producto propio")
}

func TestConfirmPaymentOwnership(t *testing.T) {
	stranger := models.Identity{ID: "vendedor2", Rol: models.RoleSeller}
	admin := models.Identity{ID: "admin1", Rol: models.RoleAdmin}

	f := newFixture(t, PaymentConfig{EnforceOwnership: true})
	_, err := f.svc.ConfirmPayment(context.Background(), stranger, "pago123")
	require.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, f.dispatcher.recipients())

	_, err = f.svc.ConfirmPayment(context.Background(), admin, "pago123")
	require.NoError(t, err)

	open := newFixture(t, PaymentConfig{EnforceOwnership: false})
	_, err = open.svc.ConfirmPayment(context.Background(), stranger, "pago123")
	require.NoError(t, err)
}

func TestConfirmPaymentPersistenceFault(t *testing.T) {
	f := newFixture(t, PaymentConfig{})
	f.mem.PaymentStore.SaveErr = errors.New("mongo no disponible")

	_, err := f.svc.ConfirmPayment(context.Background(), buyer, "pago123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "mongo no disponible")
	assert.Empty(t, f.dispatcher.recipients())
}

func TestCheckout(t *testing.T) {
	f := newFixture(t, PaymentConfig{})
	ctx := context.Background()

	p, err := f.svc.Checkout(ctx, buyer, CheckoutInput{OrdenID: "orden123", MetodoPago: models.MethodPaypal, Monto: 300})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Estado)
	assert.Equal(t, "comprador123", p.UsuarioID)
	assert.Equal(t, fixedNow, p.CreatedAt)

	_, err = f.mem.PaymentStore.FindByID(ctx, p.ID)
	require.NoError(t, err)
}

func TestCheckoutErrors(t *testing.T) {
	f := newFixture(t, PaymentConfig{})
	ctx := context.Background()
	stranger := models.Identity{ID: "vendedor1", Rol: models.RoleSeller}

	cases := []struct {
		name   string
		caller models.Identity
		in     CheckoutInput
		want   error
	}{
		{"missing order id", buyer, CheckoutInput{MetodoPago: models.MethodCard, Monto: 1}, ErrInvalidInput},
		{"bad method", buyer, CheckoutInput{OrdenID: "orden123", MetodoPago: "bitcoin", Monto: 300}, ErrInvalidInput},
		{"zero amount", buyer, CheckoutInput{OrdenID: "orden123", MetodoPago: models.MethodCard}, ErrInvalidInput},
		{"amount mismatch", buyer, CheckoutInput{OrdenID: "orden123", MetodoPago: models.MethodCard, Monto: 299.5}, ErrInvalidInput},
		{"unknown order", buyer, CheckoutInput{OrdenID: "nada", MetodoPago: models.MethodCard, Monto: 1}, ErrNotFound},
		{"foreign order", stranger, CheckoutInput{OrdenID: "orden123", MetodoPago: models.MethodCard, Monto: 300}, ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Checkout(ctx, tc.caller, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.ConfirmPayment(ctx, buyer, "pago123")
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, buyer, CheckoutInput{OrdenID: "orden123", MetodoPago: models.MethodCard, Monto: 300})
	assert.ErrorIs(t, err, ErrOrderNotPending)
}

func TestGetHistoryDelete(t *testing.T) {
	f := newFixture(t, PaymentConfig{})
	ctx := context.Background()
	stranger := models.Identity{ID: "vendedor1", Rol: models.RoleSeller}
	admin := models.Identity{ID: "admin1", Rol: models.RoleAdmin}

	p, err := f.svc.Get(ctx, buyer, "pago123")
	require.NoError(t, err)
	assert.Equal(t, "orden123", p.OrdenID)

	_, err = f.svc.Get(ctx, stranger, "pago123")
	assert.ErrorIs(t, err, ErrForbidden)

	history, err := f.svc.History(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.ConfirmPayment(ctx, buyer, "pago123")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, buyer, "pago123"), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, admin, "pago123"))

	_, err = f.mem.PaymentStore.FindByID(ctx, "pago123")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, "pago123"), ErrNotFound)
}
