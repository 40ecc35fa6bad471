// cart_service.go
package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
)

type CartService struct {
	carts    CartRepository
	products ProductRepository
	now      func() time.Time
}

func NewCartService(carts CartRepository, products ProductRepository) *CartService {
	return &CartService{carts: carts, products: products, now: func() time.Time { return time.Now().UTC() }}
}

func (s *CartService) Get(ctx context.Context, userID primitive.ObjectID) (*model.Cart, error) {
	return s.carts.FindByUser(ctx, userID)
}

// AddItem agrega (o suma) un producto al carrito con snapshot de
// precio y nombre al momento de agregarlo.
func (s *CartService) AddItem(ctx context.Context, userID primitive.ObjectID, productID string, qty int) (*model.Cart, error) {
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"productId": "invalid id"})
	}
	p, err := s.products.FindByID(ctx, pid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrNotFound.WithMessage("product not found")
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperror.ErrValidation.WithMessage("product is no longer available")
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == pid {
			cart.Items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		cart.Items = append(cart.Items, model.CartItem{
			ProductID: pid,
			Quantity:  qty,
			Price:     p.Price,
			Name:      p.Name,
			Image:     image,
		})
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem fija la cantidad; cantidad 0 elimina la línea.
func (s *CartService) UpdateItem(ctx context.Context, userID primitive.ObjectID, productID string, qty int) (*model.Cart, error) {
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"productId": "invalid id"})
	}
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := cart.Items[:0]
	found := false
	for _, it := range cart.Items {
		if it.ProductID == pid {
			found = true
			if qty > 0 {
				it.Quantity = qty
				out = append(out, it)
			}
			continue
		}
		out = append(out, it)
	}
	if !found {
		return nil, apperror.ErrNotFound.WithMessage("item not in cart")
	}
	cart.Items = out

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID primitive.ObjectID, productID string) (*model.Cart, error) {
	return s.UpdateItem(ctx, userID, productID, 0)
}
