// product_controller.go
package controller

import (
	"github.com/gin-gonic/gin"

	"medshop-backend/internal/dto"
	"medshop-backend/internal/service"
)

type ProductController struct {
	Service *service.ProductService
}

func NewProductController(s *service.ProductService) *ProductController {
	return &ProductController{Service: s}
}

// GET /api/products — pública, solo activos
func (ctl *ProductController) List(c *gin.Context) {
	products, err := ctl.Service.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, products)
}

// GET /api/products/:id
func (ctl *ProductController) Get(c *gin.Context) {
	p, err := ctl.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, p)
}

// POST /api/products/admin
func (ctl *ProductController) Create(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	p, err := ctl.Service.Create(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondCreated(c, p)
}

// PUT /api/products/admin/:id
func (ctl *ProductController) Update(c *gin.Context) {
	var req dto.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	p, err := ctl.Service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, p)
}
