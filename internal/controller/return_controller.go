// return_controller.go
package controller

import (
	"github.com/gin-gonic/gin"

	"medshop-backend/internal/dto"
	"medshop-backend/internal/service"
)

type ReturnController struct {
	Service *service.ReturnService
}

func NewReturnController(s *service.ReturnService) *ReturnController {
	return &ReturnController{Service: s}
}

// POST /api/returns — solo órdenes entregadas del propio usuario
func (ctl *ReturnController) Create(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	var req dto.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	ret, err := ctl.Service.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondCreated(c, ret)
}

// GET /api/returns/mine
func (ctl *ReturnController) Mine(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	list, err := ctl.Service.Mine(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, list)
}

// POST /api/returns/:id/cancel
func (ctl *ReturnController) Cancel(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	ret, err := ctl.Service.CancelByUser(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ret)
}

// GET /api/returns/admin
func (ctl *ReturnController) AdminList(c *gin.Context) {
	list, err := ctl.Service.AdminList(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, list)
}

// PUT /api/returns/admin/:id/status
func (ctl *ReturnController) UpdateStatus(c *gin.Context) {
	actorID, ok := principalID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	ret, err := ctl.Service.AdminUpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Note, actorID.Hex())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ret)
}
