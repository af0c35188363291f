package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	paramUserID          = "user_id"
)

func userIDParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param(paramUserID))
}

// bindOptionalJSON binds the request body into dst; an empty body leaves dst unchanged.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
