package telegram

import "github.com/gin-gonic/gin"

type IHandler interface {
	Webhook(c *gin.Context)
}
