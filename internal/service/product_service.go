// product_service.go
package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/dto"
	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
)

type ProductService struct {
	products ProductRepository
}

func NewProductService(products ProductRepository) *ProductService {
	return &ProductService{products: products}
}

func (s *ProductService) List(ctx context.Context) ([]*model.Product, error) {
	return s.products.FindActive(ctx)
}

func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	pid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"id": "invalid id"})
	}
	p, err := s.products.FindByID(ctx, pid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrNotFound.WithMessage("product not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, req dto.ProductRequest) (*model.Product, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p := &model.Product{
		Name:                 req.Name,
		Description:          req.Description,
		Price:                req.Price,
		MRP:                  req.MRP,
		Stock:                req.Stock,
		IsActive:             active,
		RequiresPrescription: req.RequiresPrescription,
		Images:               req.Images,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := s.products.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update aplica solo los campos presentes en el request.
func (s *ProductService) Update(ctx context.Context, id string, req dto.ProductUpdateRequest) (*model.Product, error) {
	pid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"id": "invalid id"})
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Price != nil {
		set["price"] = *req.Price
	}
	if req.MRP != nil {
		set["mrp"] = *req.MRP
	}
	if req.Stock != nil {
		set["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		set["is_active"] = *req.IsActive
	}
	if req.RequiresPrescription != nil {
		set["requires_prescription"] = *req.RequiresPrescription
	}
	if req.Images != nil {
		set["images"] = req.Images
	}
	if len(set) == 0 {
		return nil, apperror.ErrValidation.WithMessage("nothing to update")
	}

	if err := s.products.Update(ctx, pid, set); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrNotFound.WithMessage("product not found")
		}
		return nil, err
	}
	return s.products.FindByID(ctx, pid)
}
