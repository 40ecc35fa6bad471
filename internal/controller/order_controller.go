// order_controller.go
package controller

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"medshop-backend/internal/dto"
	"medshop-backend/internal/middleware"
	"medshop-backend/internal/service"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /api/orders — JSON directo, o multipart con la receta en el
// campo "prescription" y el body JSON en el campo "data".
func (ctl *OrderController) Place(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}

	var req dto.PlaceOrderRequest
	contentType := c.GetHeader("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if data := c.PostForm("data"); data != "" {
			if err := json.Unmarshal([]byte(data), &req); err != nil {
				respondBadRequest(c, err)
				return
			}
		}
		file, _ := c.FormFile("prescription")
		order, err := ctl.Service.Place(c.Request.Context(), userID, req, file)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCreated(c, order)
		return
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := ctl.Service.Place(c.Request.Context(), userID, req, nil)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondCreated(c, order)
}

// GET /api/orders/mine
func (ctl *OrderController) Mine(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	orders, err := ctl.Service.Mine(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, orders)
}

// GET /api/orders/:id — dueño o admin
func (ctl *OrderController) Get(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	order, err := ctl.Service.Get(c.Request.Context(), userID, middleware.IsAdmin(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, order)
}

// POST /api/orders/:id/cancel
func (ctl *OrderController) Cancel(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	order, err := ctl.Service.Cancel(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, order)
}

// GET /api/orders/admin?status=shipped
func (ctl *OrderController) AdminList(c *gin.Context) {
	orders, err := ctl.Service.AdminList(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, orders)
}

// PUT /api/orders/:id/status — admin
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	actorID, ok := principalID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := ctl.Service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Note, actorID.Hex())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, order)
}
