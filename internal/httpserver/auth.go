package httpserver

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) basicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if ok && subtle.ConstantTimeCompare([]byte(user), []byte(s.user)) == 1 &&
			bcrypt.CompareHashAndPassword(s.hash, []byte(pass)) == nil {
			c.Next()
			return
		}
		c.Header("WWW-Authenticate", `Basic realm="eventlens"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
