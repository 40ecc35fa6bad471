// return_service.go
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/dto"
	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
	"medshop-backend/internal/status"
)

type ReturnRepository interface {
	Insert(ctx context.Context, r *model.Return) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Return, error)
	FindActiveByOrder(ctx context.Context, orderID primitive.ObjectID) (*model.Return, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Return, error)
	FindAll(ctx context.Context) ([]*model.Return, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error
	MarkRefunded(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type ReturnService struct {
	returns  ReturnRepository
	orders   OrderRepository
	products ProductRepository
	events   EventPublisher
	now      func() time.Time
}

func NewReturnService(returns ReturnRepository, orders OrderRepository, products ProductRepository, events EventPublisher) *ReturnService {
	return &ReturnService{
		returns:  returns,
		orders:   orders,
		products: products,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create abre una devolución para una orden entregada del usuario.
// Solo puede haber una devolución activa por orden.
func (s *ReturnService) Create(ctx context.Context, userID primitive.ObjectID, req dto.CreateReturnRequest) (*model.Return, error) {
	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"orderId": "invalid id"})
	}
	ord, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrNotFound.WithMessage("order not found")
	}
	if err != nil {
		return nil, err
	}
	if ord.UserID != userID {
		return nil, apperror.ErrForbidden.WithMessage("you cannot return another user's order")
	}
	if ord.Status != status.OrderDelivered {
		return nil, apperror.ErrValidation.WithMessage("only delivered orders can be returned")
	}

	if _, err := s.returns.FindActiveByOrder(ctx, orderID); err == nil {
		return nil, apperror.ErrConflict.WithMessage("an active return already exists for this order")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	items, refund, fields := matchReturnItems(ord, req.Items)
	if len(fields) > 0 {
		return nil, apperror.ErrValidation.WithMessage("invalid return items").WithFields(fields)
	}

	now := s.now()
	ret := &model.Return{
		ReturnCode:        "RET-" + uuid.NewString()[:8],
		OrderID:           orderID,
		UserID:            userID,
		Items:             items,
		Reason:            req.Reason,
		ReasonDescription: req.ReasonDescription,
		RefundAmount:      refund,
		Status:            status.ReturnPending,
	}
	ret.StatusHistory, ret.Timeline = status.Initial(status.ReturnPending, userID.Hex(), "Devolución solicitada", now)

	if err := s.returns.Insert(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *ReturnService) Mine(ctx context.Context, userID primitive.ObjectID) ([]*model.Return, error) {
	return s.returns.FindByUser(ctx, userID)
}

func (s *ReturnService) AdminList(ctx context.Context) ([]*model.Return, error) {
	return s.returns.FindAll(ctx)
}

// CancelByUser permite cancelar mientras la devolución no avanzó
// más allá de la aprobación.
func (s *ReturnService) CancelByUser(ctx context.Context, userID primitive.ObjectID, id string) (*model.Return, error) {
	ret, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret.UserID != userID {
		return nil, apperror.ErrForbidden.WithMessage("you cannot cancel another user's return")
	}
	if ret.Status != status.ReturnPending && ret.Status != status.ReturnApproved {
		return nil, apperror.ErrValidation.WithMessage("return can no longer be cancelled")
	}

	update, err := status.Transition(status.Returns, status.ReturnCancelled, userID.Hex(), "Cancelada por el usuario", s.now())
	if err != nil {
		return nil, err
	}
	if err := s.returns.ApplyTransition(ctx, ret.ID, update); err != nil {
		return nil, err
	}
	s.events.StatusChanged(ctx, "return", ret.ID.Hex(), status.ReturnCancelled, userID.Hex())
	return s.returns.FindByID(ctx, ret.ID)
}

// AdminUpdateStatus transiciona la devolución. Al procesar el reembolso
// (o completar directo) se restaura el stock, exactamente una vez:
// refunded_at actúa de guard (CAS en MarkRefunded).
func (s *ReturnService) AdminUpdateStatus(ctx context.Context, id, newStatus, note, actorID string) (*model.Return, error) {
	ret, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	update, err := status.Transition(status.Returns, newStatus, actorID, note, s.now())
	if errors.Is(err, status.ErrInvalidStatus) {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}
	if err != nil {
		return nil, err
	}
	if err := s.returns.ApplyTransition(ctx, ret.ID, update); err != nil {
		return nil, err
	}

	if newStatus == status.ReturnRefundProcessed || newStatus == status.ReturnCompleted {
		first, err := s.returns.MarkRefunded(ctx, ret.ID)
		if err != nil {
			return nil, err
		}
		if first {
			// El flag de la orden es compartido con las transiciones de
			// orden (cancelled/returned): si cualquiera de los dos flujos
			// ya restauró, el otro no suma de nuevo.
			released, err := s.orders.MarkStockReleased(ctx, ret.OrderID)
			if err != nil {
				return nil, err
			}
			if released {
				for _, it := range ret.Items {
					if err := s.products.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
						log.Println("⚠ No se pudo restaurar stock de", it.ProductID.Hex(), ":", err)
					}
				}
			}
		}
	}

	s.events.StatusChanged(ctx, "return", ret.ID.Hex(), newStatus, actorID)
	return s.returns.FindByID(ctx, ret.ID)
}

func (s *ReturnService) find(ctx context.Context, id string) (*model.Return, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"id": "invalid id"})
	}
	ret, err := s.returns.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrNotFound.WithMessage("return not found")
	}
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// matchReturnItems valida que cada línea devuelta exista en la orden y
// no exceda la cantidad comprada. El reembolso sale de los precios de
// la orden, no del request.
func matchReturnItems(ord *model.Order, reqItems []dto.ReturnItemRequest) ([]model.OrderItem, float64, map[string]string) {
	byProduct := make(map[primitive.ObjectID]model.OrderItem, len(ord.Items))
	for _, it := range ord.Items {
		byProduct[it.ProductID] = it
	}

	var (
		items  []model.OrderItem
		refund float64
		fields = map[string]string{}
	)
	for _, ri := range reqItems {
		pid, err := primitive.ObjectIDFromHex(ri.ProductID)
		if err != nil {
			fields[ri.ProductID] = "invalid product id"
			continue
		}
		ordered, ok := byProduct[pid]
		if !ok {
			fields[ri.ProductID] = "not part of this order"
			continue
		}
		if ri.Quantity > ordered.Quantity {
			fields[ordered.Name] = "quantity exceeds purchased amount"
			continue
		}
		items = append(items, model.OrderItem{
			ProductID: pid,
			Name:      ordered.Name,
			Image:     ordered.Image,
			Price:     ordered.Price,
			Quantity:  ri.Quantity,
		})
		refund += ordered.Price * float64(ri.Quantity)
	}
	return items, refund, fields
}
