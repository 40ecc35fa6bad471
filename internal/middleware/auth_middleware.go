// auth_middleware.go
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
	"medshop-backend/internal/service"
)

const (
	ctxPrincipal = "principal"
	ctxRole      = "role"
)

// Authenticate valida el bearer token y carga el principal desde la
// base. Token vencido y token inválido responden 401 con mensajes
// distintos; una cuenta borrada también corta acá.
func Authenticate(tokens *service.TokenService, users service.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, apperror.ErrUnauthenticated.WithMessage("missing authorization header"))
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" || token == authHeader {
			abortWith(c, apperror.ErrUnauthenticated.WithMessage("malformed authorization header"))
			return
		}

		claims, err := tokens.Parse(token, service.TokenTypeAccess)
		if err != nil {
			abortWith(c, apperror.From(err))
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			abortWith(c, apperror.ErrInvalidToken)
			return
		}
		user, err := users.FindByID(c.Request.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			abortWith(c, service.ErrPrincipalNotFound)
			return
		}
		if err != nil {
			abortWith(c, apperror.ErrInternal)
			return
		}

		// El principal queda en el contexto; nunca se muta aguas abajo
		c.Set(ctxPrincipal, user)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin exige el claim de rol admin Y el flag persistido en la
// cuenta. Sin alguno de los dos: 403 (distinto de no autenticado).
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := Principal(c)
		if !ok {
			abortWith(c, apperror.ErrUnauthenticated)
			return
		}
		if c.GetString(ctxRole) != service.RoleAdmin || !user.IsAdmin {
			abortWith(c, apperror.ErrForbidden.WithMessage("admin privileges required"))
			return
		}
		c.Next()
	}
}

// Principal devuelve el usuario autenticado del contexto.
func Principal(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

// IsAdmin reporta si la request viene de un admin (claim + flag).
func IsAdmin(c *gin.Context) bool {
	user, ok := Principal(c)
	return ok && c.GetString(ctxRole) == service.RoleAdmin && user.IsAdmin
}

func abortWith(c *gin.Context, err *apperror.AppError) {
	c.JSON(err.HTTP, gin.H{"success": false, "message": err.Message})
	c.Abort()
}
