// respond.go
package controller

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"medshop-backend/internal/apperror"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// respondErr mapea el error a la taxonomía. Lo desconocido se loguea y
// sale como 500 genérico, sin detalles internos.
func respondErr(c *gin.Context, err error) {
	app := apperror.From(err)
	if app.HTTP >= http.StatusInternalServerError {
		log.Println("❌ Error interno:", err)
	}
	body := gin.H{"success": false, "message": app.Message}
	if len(app.Fields) > 0 {
		body["errors"] = app.Fields
	}
	c.JSON(app.HTTP, body)
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
}
