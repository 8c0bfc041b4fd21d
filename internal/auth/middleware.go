package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxTeacherClaims = "educoin_teacher_claims"

// RequireTeacher returns a Gin middleware that enforces a valid teacher
// Bearer token and stores its claims in the context.
func RequireTeacher(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer teacher token required",
			})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid teacher token: " + err.Error(),
			})
			return
		}

		c.Set(ctxTeacherClaims, claims)
		c.Next()
	}
}

// TeacherFromCtx returns the claims stored by RequireTeacher, or nil.
func TeacherFromCtx(c *gin.Context) *TeacherClaims {
	v, ok := c.Get(ctxTeacherClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*TeacherClaims)
	return claims
}
