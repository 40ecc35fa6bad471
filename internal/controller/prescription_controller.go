// prescription_controller.go
package controller

import (
	"github.com/gin-gonic/gin"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/dto"
	"medshop-backend/internal/middleware"
	"medshop-backend/internal/service"
)

type PrescriptionController struct {
	Service *service.PrescriptionService
}

func NewPrescriptionController(s *service.PrescriptionService) *PrescriptionController {
	return &PrescriptionController{Service: s}
}

// POST /api/prescriptions — multipart, archivo en "prescription"
func (ctl *PrescriptionController) Upload(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	file, err := c.FormFile("prescription")
	if err != nil {
		respondErr(c, apperror.ErrValidation.WithFields(map[string]string{"prescription": "file is required"}))
		return
	}
	p, err := ctl.Service.Upload(c.Request.Context(), userID, file, c.PostForm("note"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondCreated(c, p)
}

// GET /api/prescriptions/mine
func (ctl *PrescriptionController) Mine(c *gin.Context) {
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

// GET /api/prescriptions/:id — dueño o admin
func (ctl *PrescriptionController) Get(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	p, err := ctl.Service.Get(c.Request.Context(), userID, middleware.IsAdmin(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, p)
}

// GET /api/prescriptions/admin
func (ctl *PrescriptionController) AdminList(c *gin.Context) {
	list, err := ctl.Service.AdminList(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, list)
}

// PUT /api/prescriptions/admin/:id/status
func (ctl *PrescriptionController) UpdateStatus(c *gin.Context) {
	actorID, ok := principalID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	p, err := ctl.Service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Note, actorID.Hex())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, p)
}
