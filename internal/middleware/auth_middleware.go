package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OperatorKey ключ контекста gin с именем оператора
const OperatorKey = "operator"

// TokenValidator проверяет bearer-токен и возвращает оператора
type TokenValidator interface {
	Validate(token string) (string, error)
}

// RequireOperator пропускает только запросы с действительным bearer-токеном
func RequireOperator(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется токен оператора"})
			return
		}
		operator, err := v.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(OperatorKey, operator)
		c.Next()
	}
}
