package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/dto"
	"medshop-backend/internal/model"
	"medshop-backend/internal/status"
)

type returnFixture struct {
	svc      *ReturnService
	returns  *fakeReturnRepo
	orders   *fakeOrderRepo
	products *fakeProductRepo
	events   *fakeEvents
}

func newReturnFixture(orders *fakeOrderRepo, products *fakeProductRepo) *returnFixture {
	f := &returnFixture{
		returns:  newFakeReturnRepo(),
		orders:   orders,
		products: products,
		events:   &fakeEvents{},
	}
	f.svc = NewReturnService(f.returns, f.orders, f.products, f.events)
	return f
}

func deliveredOrder(userID primitive.ObjectID, items ...model.OrderItem) *model.Order {
	now := time.Now().UTC()
	history, timeline := status.Initial(status.OrderPending, userID.Hex(), "", now.Add(-48*time.Hour))
	return &model.Order{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Status:        status.OrderDelivered,
		Items:         items,
		StatusHistory: history,
		Timeline:      timeline,
	}
}

func TestCreateReturnOnlyForDeliveredOrders(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 5)
	ord := deliveredOrder(userID, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2})
	ord.Status = status.OrderShipped
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))

	_, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 1}},
		Reason:  "damaged",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("orden no entregada: err = %v", err)
	}
}

func TestCreateReturnEnforcesOwnership(t *testing.T) {
	owner := primitive.NewObjectID()
	a := activeProduct("A", 100, 5)
	ord := deliveredOrder(owner, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2})
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))

	_, err := f.svc.Create(context.Background(), primitive.NewObjectID(), dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 1}},
		Reason:  "damaged",
	})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("otro usuario: err = %v", err)
	}
}

// Una sola devolución activa por orden: la segunda solicitud choca con
// 409 mientras la primera no esté rechazada o cancelada.
func TestCreateReturnRejectsDuplicateActive(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 5)
	ord := deliveredOrder(userID, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2})
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))

	req := dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 1}},
		Reason:  "damaged",
	}
	first, err := f.svc.Create(context.Background(), userID, req)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Create(context.Background(), userID, req); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("segunda devolución activa: err = %v", err)
	}

	// Rechazada la primera, se puede abrir otra
	if _, err := f.svc.AdminUpdateStatus(context.Background(), first.ID.Hex(), status.ReturnRejected, "", "admin-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(context.Background(), userID, req); err != nil {
		t.Fatalf("tras el rechazo debía poder reabrirse: %v", err)
	}
}

// El reembolso sale de los precios de la orden, no del request, y las
// líneas tienen que ser subconjunto de lo comprado.
func TestCreateReturnComputesRefundFromOrderPrices(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 5)
	b := activeProduct("B", 40, 5)
	ord := deliveredOrder(userID,
		model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2},
		model.OrderItem{ProductID: b.ID, Name: "B", Price: 40, Quantity: 3},
	)
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a, b))

	ret, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items: []dto.ReturnItemRequest{
			{ProductID: a.ID.Hex(), Quantity: 1},
			{ProductID: b.ID.Hex(), Quantity: 2},
		},
		Reason: "wrong item",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ret.RefundAmount != 180 { // 100 + 2*40
		t.Errorf("reembolso = %v, esperaba 180", ret.RefundAmount)
	}
	if !strings.HasPrefix(ret.ReturnCode, "RET-") {
		t.Errorf("código de devolución: %q", ret.ReturnCode)
	}
	if ret.Status != status.ReturnPending || len(ret.StatusHistory) != 1 {
		t.Errorf("estado inicial: %q, historial %d", ret.Status, len(ret.StatusHistory))
	}
}

func TestCreateReturnRejectsExcessQuantity(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 5)
	ord := deliveredOrder(userID, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2})
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))

	_, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 5}},
		Reason:  "damaged",
	})
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Fields["A"] == "" {
		t.Fatalf("cantidad excedida: err = %v", err)
	}
}

// Rechazar agrega exactamente una entrada al historial, no toca el
// stock y deja refundedAt sin setear.
func TestAdminRejectDoesNotRefund(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 5)
	ord := deliveredOrder(userID, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2})
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))

	ret, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 2}},
		Reason:  "damaged",
	})
	if err != nil {
		t.Fatal(err)
	}
	before := len(ret.StatusHistory)

	got, err := f.svc.AdminUpdateStatus(context.Background(), ret.ID.Hex(), status.ReturnRejected, "producto usado", "admin-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != status.ReturnRejected {
		t.Errorf("status = %q", got.Status)
	}
	if len(got.StatusHistory) != before+1 {
		t.Errorf("historial pasó de %d a %d entradas", before, len(got.StatusHistory))
	}
	last := got.StatusHistory[len(got.StatusHistory)-1]
	if last.Status != status.ReturnRejected || last.Actor != "admin-1" || last.Note != "producto usado" {
		t.Errorf("última entrada: %+v", last)
	}
	if got.RefundedAt != nil {
		t.Error("refundedAt no debía setearse al rechazar")
	}
	if len(f.products.restored) != 0 {
		t.Errorf("el rechazo no debía restaurar stock: %v", f.products.restored)
	}
}

// El stock vuelve exactamente una vez aunque la devolución pase por
// refund_processed y luego completed.
func TestRefundRestoresStockExactlyOnce(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 3)
	ord := deliveredOrder(userID, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2})
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))

	ret, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 2}},
		Reason:  "damaged",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.AdminUpdateStatus(context.Background(), ret.ID.Hex(), status.ReturnRefundProcessed, "", "admin-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RefundedAt == nil {
		t.Fatal("refundedAt debía quedar seteado")
	}
	if a.Stock != 5 {
		t.Errorf("stock tras el reembolso = %d, esperaba 5", a.Stock)
	}

	// Completar después no vuelve a restaurar
	if _, err := f.svc.AdminUpdateStatus(context.Background(), ret.ID.Hex(), status.ReturnCompleted, "", "admin-1"); err != nil {
		t.Fatal(err)
	}
	if a.Stock != 5 {
		t.Errorf("restauración duplicada: %d", a.Stock)
	}
	if f.products.restored[a.ID] != 2 {
		t.Errorf("restaurado total = %d, esperaba 2", f.products.restored[a.ID])
	}
}

// Flujo cruzado: la devolución reembolsa (restaura stock) y después el
// admin asienta la orden como returned. El flag compartido de la orden
// evita que la transición de orden vuelva a sumar los mismos ítems.
func TestOrderReturnedAfterRefundDoesNotRestoreAgain(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 3)
	ord := deliveredOrder(userID, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2})
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))
	orderSvc := NewOrderService(f.orders, f.products, &fakeCartRepo{}, newFakePrescriptionRepo(), &fakeStorage{}, f.events)

	ret, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 2}},
		Reason:  "damaged",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AdminUpdateStatus(context.Background(), ret.ID.Hex(), status.ReturnRefundProcessed, "", "admin-1"); err != nil {
		t.Fatal(err)
	}
	if a.Stock != 5 {
		t.Fatalf("stock tras el reembolso = %d, esperaba 5", a.Stock)
	}

	got, err := orderSvc.UpdateStatus(context.Background(), ord.ID.Hex(), status.OrderReturned, "", "admin-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != status.OrderReturned {
		t.Errorf("status de la orden = %q", got.Status)
	}
	if a.Stock != 5 {
		t.Errorf("asentar la orden returned no debía restaurar de nuevo: %d", a.Stock)
	}
	if f.products.restored[a.ID] != 2 {
		t.Errorf("restaurado total = %d, esperaba 2", f.products.restored[a.ID])
	}
}

// Mismo guard en la dirección inversa: si la orden ya liberó el stock,
// el reembolso de la devolución no vuelve a sumarlo.
func TestRefundAfterOrderReleaseDoesNotRestoreAgain(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 3)
	ord := deliveredOrder(userID, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 2})
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))
	orderSvc := NewOrderService(f.orders, f.products, &fakeCartRepo{}, newFakePrescriptionRepo(), &fakeStorage{}, f.events)

	ret, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 2}},
		Reason:  "damaged",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := orderSvc.UpdateStatus(context.Background(), ord.ID.Hex(), status.OrderReturned, "", "admin-1"); err != nil {
		t.Fatal(err)
	}
	if a.Stock != 5 {
		t.Fatalf("stock tras liberar la orden = %d, esperaba 5", a.Stock)
	}

	got, err := f.svc.AdminUpdateStatus(context.Background(), ret.ID.Hex(), status.ReturnRefundProcessed, "", "admin-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RefundedAt == nil {
		t.Error("el reembolso igual debía quedar asentado")
	}
	if a.Stock != 5 {
		t.Errorf("el reembolso no debía restaurar de nuevo: %d", a.Stock)
	}
}

func TestCancelByUserOnlyWhileEarly(t *testing.T) {
	userID := primitive.NewObjectID()
	a := activeProduct("A", 100, 5)
	ord := deliveredOrder(userID, model.OrderItem{ProductID: a.ID, Name: "A", Price: 100, Quantity: 1})
	f := newReturnFixture(newFakeOrderRepo(ord), newFakeProductRepo(a))

	ret, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 1}},
		Reason:  "changed my mind",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Otro usuario no puede cancelarla
	if _, err := f.svc.CancelByUser(context.Background(), primitive.NewObjectID(), ret.ID.Hex()); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("otro usuario: err = %v", err)
	}

	got, err := f.svc.CancelByUser(context.Background(), userID, ret.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != status.ReturnCancelled {
		t.Errorf("status = %q", got.Status)
	}

	// Pasada la recolección ya no: armamos otra en pickup_scheduled
	ret2, err := f.svc.Create(context.Background(), userID, dto.CreateReturnRequest{
		OrderID: ord.ID.Hex(),
		Items:   []dto.ReturnItemRequest{{ProductID: a.ID.Hex(), Quantity: 1}},
		Reason:  "damaged",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AdminUpdateStatus(context.Background(), ret2.ID.Hex(), status.ReturnPickupScheduled, "", "admin-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CancelByUser(context.Background(), userID, ret2.ID.Hex()); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("cancelación tardía: err = %v", err)
	}
}
