// cart_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/dto"
	"medshop-backend/internal/middleware"
	"medshop-backend/internal/service"
)

type CartController struct {
	Service *service.CartService
}

func NewCartController(s *service.CartService) *CartController {
	return &CartController{Service: s}
}

// GET /api/cart
func (ctl *CartController) Get(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	cart, err := ctl.Service.Get(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, cart)
}

// POST /api/cart/items
func (ctl *CartController) AddItem(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	var req dto.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	cart, err := ctl.Service.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, cart)
}

// PUT /api/cart/items/:productId
func (ctl *CartController) UpdateItem(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	var req dto.CartUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	cart, err := ctl.Service.UpdateItem(c.Request.Context(), userID, c.Param("productId"), req.Quantity)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, cart)
}

// DELETE /api/cart/items/:productId
func (ctl *CartController) RemoveItem(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	cart, err := ctl.Service.RemoveItem(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, cart)
}

// principalID saca el id del usuario autenticado; si no hay principal
// responde 401 y devuelve false.
func principalID(c *gin.Context) (primitive.ObjectID, bool) {
	user, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
		return primitive.NilObjectID, false
	}
	return user.ID, true
}
