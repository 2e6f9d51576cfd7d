package v1

import (
	"github.com/gin-gonic/gin"
)

type response struct {
	Detail string `json:"detail" example:"failed to transcribe audio: unsupported codec"`
}

func errorResponse(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, response{msg})
}
