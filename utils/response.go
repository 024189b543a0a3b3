package utils

import (
	"github.com/gin-gonic/gin"
)

// RespondSuccess writes a success envelope merged with fields.
func RespondSuccess(c *gin.Context, code int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(code, body)
}

// RespondError aborts the request with an error envelope.
func RespondError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": message})
}
