// order_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/dto"
	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
	"medshop-backend/internal/status"
	"medshop-backend/internal/storage"
)

// Interfaces que deben implementar los repositorios
type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Order, error)
	FindAll(ctx context.Context) ([]*model.Order, error)
	FindByStatus(ctx context.Context, status string) ([]*model.Order, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error
	MarkStockReleased(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type ProductRepository interface {
	Insert(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	FindActive(ctx context.Context) ([]*model.Product, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error)
	RestoreStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*model.Cart, error)
	Save(ctx context.Context, c *model.Cart) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type PrescriptionRepository interface {
	Insert(ctx context.Context, p *model.Prescription) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Prescription, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Prescription, error)
	FindAll(ctx context.Context) ([]*model.Prescription, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error
	LinkOrder(ctx context.Context, id, orderID primitive.ObjectID) error
}

// EventPublisher emite eventos best-effort (lo implementa rabbit).
type EventPublisher interface {
	OrderPlaced(ctx context.Context, o *model.Order)
	StatusChanged(ctx context.Context, entity, id, newStatus, actor string)
}

// Envío gratis por encima de este subtotal
const (
	deliveryFeeFlat  = 40.0
	freeDeliveryOver = 500.0
)

type OrderService struct {
	orders        OrderRepository
	products      ProductRepository
	carts         CartRepository
	prescriptions PrescriptionRepository
	files         storage.Storage
	events        EventPublisher
	now           func() time.Time
}

func NewOrderService(orders OrderRepository, products ProductRepository, carts CartRepository,
	prescriptions PrescriptionRepository, files storage.Storage, events EventPublisher) *OrderService {
	return &OrderService{
		orders:        orders,
		products:      products,
		carts:         carts,
		prescriptions: prescriptions,
		files:         files,
		events:        events,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Place crea la orden completa o no crea nada: si una sola línea queda
// sin stock, se revierte todo lo ya descontado y se responde 400 con
// las líneas que fallaron.
func (s *OrderService) Place(ctx context.Context, userID primitive.ObjectID, req dto.PlaceOrderRequest, file *multipart.FileHeader) (*model.Order, error) {
	if fields := validateShipping(req.ShippingAddress); len(fields) > 0 {
		return nil, apperror.ErrValidation.WithMessage("invalid shipping address").WithFields(fields)
	}
	if !validPaymentMethod(req.PaymentMethod) {
		return nil, apperror.ErrValidation.WithFields(map[string]string{
			"paymentMethod": "must be one of COD, ONLINE, WALLET",
		})
	}

	items, requiresRx, fromCart, err := s.resolveItems(ctx, userID, req.Items)
	if err != nil {
		return nil, err
	}

	if requiresRx && file == nil && req.PrescriptionURL == "" && req.PrescriptionID == "" {
		return nil, apperror.ErrValidation.WithMessage("a prescription is required for one or more items")
	}

	var fileRef *model.FileRef
	prescriptionURL := req.PrescriptionURL
	if file != nil {
		fileRef, err = s.files.Store(ctx, file, "prescriptions")
		if err != nil {
			return nil, apperror.ErrValidation.WithMessage("could not store prescription file")
		}
		prescriptionURL = fileRef.URL
	}

	// Descuento de stock con compensación: si una línea falla a mitad
	// de camino, se restaura lo ya aplicado.
	if err := s.decrementAll(ctx, items); err != nil {
		s.cleanupFile(ctx, fileRef)
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: toModelShipping(req.ShippingAddress),
		PaymentMethod:   req.PaymentMethod,
		Status:          status.OrderPending,
		PrescriptionURL: prescriptionURL,
	}
	order.StatusHistory, order.Timeline = status.Initial(status.OrderPending, userID.Hex(), "Orden creada", now)
	applyTotals(order, req)

	if req.PrescriptionID != "" {
		if id, err := primitive.ObjectIDFromHex(req.PrescriptionID); err == nil {
			order.PrescriptionID = &id
		}
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		s.restoreAll(ctx, items)
		s.cleanupFile(ctx, fileRef)
		return nil, err
	}

	if fromCart {
		if err := s.carts.Clear(ctx, userID); err != nil {
			log.Println("⚠ No se pudo vaciar el carrito de", userID.Hex(), ":", err)
		}
	}

	if order.PrescriptionID != nil {
		s.linkPrescription(ctx, *order.PrescriptionID, order, userID)
	}

	s.events.OrderPlaced(ctx, order)
	return order, nil
}

// Get devuelve la orden si el solicitante es el dueño o admin.
func (s *OrderService) Get(ctx context.Context, requester primitive.ObjectID, isAdmin bool, orderID string) (*model.Order, error) {
	ord, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && ord.UserID != requester {
		return nil, apperror.ErrForbidden.WithMessage("you cannot view another user's order")
	}
	return ord, nil
}

func (s *OrderService) Mine(ctx context.Context, userID primitive.ObjectID) ([]*model.Order, error) {
	return s.orders.FindByUser(ctx, userID)
}

func (s *OrderService) AdminList(ctx context.Context, statusFilter string) ([]*model.Order, error) {
	if statusFilter == "" {
		return s.orders.FindAll(ctx)
	}
	if !status.Orders.Valid(statusFilter) {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"status": "unknown order status"})
	}
	return s.orders.FindByStatus(ctx, statusFilter)
}

// UpdateStatus es la transición de admin. Cancelar o marcar devuelta
// restaura stock, una sola vez.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, newStatus, note, actorID string) (*model.Order, error) {
	ord, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	update, err := status.Transition(status.Orders, newStatus, actorID, note, s.now())
	if errors.Is(err, status.ErrInvalidStatus) {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}
	if err != nil {
		return nil, err
	}
	if err := s.orders.ApplyTransition(ctx, ord.ID, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrNotFound.WithMessage("order not found")
		}
		return nil, err
	}

	// El CAS sobre stock_released_at garantiza una sola restauración
	// por orden: si la devolución ya reembolsó (o una transición
	// concurrente llegó primero), acá no se vuelve a sumar.
	if newStatus == status.OrderCancelled || newStatus == status.OrderReturned {
		first, err := s.orders.MarkStockReleased(ctx, ord.ID)
		if err != nil {
			return nil, err
		}
		if first {
			s.restoreAll(ctx, ord.Items)
		}
	}

	s.events.StatusChanged(ctx, "order", ord.ID.Hex(), newStatus, actorID)
	return s.orders.FindByID(ctx, ord.ID)
}

// Cancel permite al dueño cancelar mientras la orden no entró en preparación.
func (s *OrderService) Cancel(ctx context.Context, userID primitive.ObjectID, orderID string) (*model.Order, error) {
	ord, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.UserID != userID {
		return nil, apperror.ErrForbidden.WithMessage("you cannot cancel another user's order")
	}
	if ord.Status != status.OrderPending && ord.Status != status.OrderConfirmed {
		return nil, apperror.ErrValidation.WithMessage("order can no longer be cancelled")
	}

	update, err := status.Transition(status.Orders, status.OrderCancelled, userID.Hex(), "Cancelada por el usuario", s.now())
	if err != nil {
		return nil, err
	}
	if err := s.orders.ApplyTransition(ctx, ord.ID, update); err != nil {
		return nil, err
	}
	first, err := s.orders.MarkStockReleased(ctx, ord.ID)
	if err != nil {
		return nil, err
	}
	if first {
		s.restoreAll(ctx, ord.Items)
	}
	s.events.StatusChanged(ctx, "order", ord.ID.Hex(), status.OrderCancelled, userID.Hex())
	return s.orders.FindByID(ctx, ord.ID)
}

// --- helpers ---

// resolveItems arma las líneas desde el request o desde el carrito,
// validando producto activo y stock suficiente antes de tocar nada.
func (s *OrderService) resolveItems(ctx context.Context, userID primitive.ObjectID, reqItems []dto.OrderItemRequest) ([]model.OrderItem, bool, bool, error) {
	type line struct {
		productID primitive.ObjectID
		qty       int
	}
	var lines []line
	fromCart := len(reqItems) == 0

	if fromCart {
		cart, err := s.carts.FindByUser(ctx, userID)
		if err != nil {
			return nil, false, false, err
		}
		if len(cart.Items) == 0 {
			return nil, false, false, apperror.ErrValidation.WithMessage("cart is empty")
		}
		for _, it := range cart.Items {
			lines = append(lines, line{productID: it.ProductID, qty: it.Quantity})
		}
	} else {
		for _, it := range reqItems {
			id, err := primitive.ObjectIDFromHex(it.ProductID)
			if err != nil {
				return nil, false, false, apperror.ErrValidation.WithFields(map[string]string{it.ProductID: "invalid product id"})
			}
			lines = append(lines, line{productID: id, qty: it.Quantity})
		}
	}

	var (
		items      []model.OrderItem
		requiresRx bool
		failures   = map[string]string{}
	)
	for _, ln := range lines {
		p, err := s.products.FindByID(ctx, ln.productID)
		if errors.Is(err, repository.ErrNotFound) {
			failures[ln.productID.Hex()] = "product not found"
			continue
		}
		if err != nil {
			return nil, false, false, err
		}
		if !p.IsActive {
			failures[p.Name] = "product is no longer available"
			continue
		}
		if p.Stock < ln.qty {
			failures[p.Name] = fmt.Sprintf("insufficient stock (%d left)", p.Stock)
			continue
		}
		if p.RequiresPrescription {
			requiresRx = true
		}
		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     image,
			Price:     p.Price,
			Quantity:  ln.qty,
		})
	}
	if len(failures) > 0 {
		return nil, false, false, apperror.ErrValidation.WithMessage("some items cannot be ordered").WithFields(failures)
	}
	return items, requiresRx, fromCart, nil
}

func (s *OrderService) decrementAll(ctx context.Context, items []model.OrderItem) error {
	var applied []model.OrderItem
	for _, it := range items {
		ok, err := s.products.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err == nil && ok {
			applied = append(applied, it)
			continue
		}
		// Compensación: devolver lo ya descontado
		s.restoreAll(ctx, applied)
		if err != nil {
			return err
		}
		return apperror.ErrValidation.WithMessage("some items cannot be ordered").
			WithFields(map[string]string{it.Name: "insufficient stock"})
	}
	return nil
}

func (s *OrderService) restoreAll(ctx context.Context, items []model.OrderItem) {
	for _, it := range items {
		if err := s.products.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
			log.Println("⚠ No se pudo restaurar stock de", it.ProductID.Hex(), ":", err)
		}
	}
}

func (s *OrderService) cleanupFile(ctx context.Context, ref *model.FileRef) {
	if ref == nil {
		return
	}
	if err := s.files.Delete(ctx, ref.PublicID); err != nil {
		log.Println("⚠ Archivo de receta huérfano:", ref.PublicID)
	}
}

func (s *OrderService) linkPrescription(ctx context.Context, prescriptionID primitive.ObjectID, order *model.Order, userID primitive.ObjectID) {
	if err := s.prescriptions.LinkOrder(ctx, prescriptionID, order.ID); err != nil {
		log.Println("⚠ No se pudo vincular receta", prescriptionID.Hex(), ":", err)
		return
	}
	update, err := status.Transition(status.Prescriptions, status.PrescriptionOrderCreated, userID.Hex(), "Orden creada desde la receta", s.now())
	if err == nil {
		if err := s.prescriptions.ApplyTransition(ctx, prescriptionID, update); err != nil {
			log.Println("⚠ No se pudo transicionar receta", prescriptionID.Hex(), ":", err)
		}
	}
}

func (s *OrderService) findOrder(ctx context.Context, orderID string) (*model.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"orderId": "invalid id"})
	}
	ord, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrNotFound.WithMessage("order not found")
	}
	if err != nil {
		return nil, err
	}
	return ord, nil
}

func validateShipping(in dto.ShippingAddressRequest) map[string]string {
	fields := map[string]string{}
	if in.FullName == "" {
		fields["fullName"] = "required"
	}
	if in.Phone == "" {
		fields["phone"] = "required"
	}
	if in.AddressLine1 == "" {
		fields["addressLine1"] = "required"
	}
	if in.City == "" {
		fields["city"] = "required"
	}
	if in.PostalCode == "" {
		fields["postalCode"] = "required"
	}
	return fields
}

func validPaymentMethod(m string) bool {
	return m == model.PaymentCOD || m == model.PaymentOnline || m == model.PaymentWallet
}

func toModelShipping(in dto.ShippingAddressRequest) model.ShippingAddress {
	return model.ShippingAddress{
		FullName:     in.FullName,
		Phone:        in.Phone,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
	}
}

// applyTotals confía en los montos del cliente cuando vienen; si no,
// los computa desde las líneas. total = subtotal + envío + impuestos.
func applyTotals(order *model.Order, req dto.PlaceOrderRequest) {
	if req.Total > 0 {
		order.Subtotal = req.Subtotal
		order.DeliveryFee = req.DeliveryFee
		order.Taxes = req.Taxes
		order.Total = req.Total
		return
	}
	var subtotal float64
	for _, it := range order.Items {
		subtotal += it.Price * float64(it.Quantity)
	}
	fee := deliveryFeeFlat
	if subtotal >= freeDeliveryOver {
		fee = 0
	}
	order.Subtotal = subtotal
	order.DeliveryFee = fee
	order.Taxes = 0
	order.Total = subtotal + fee
}
