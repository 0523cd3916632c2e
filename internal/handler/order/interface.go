package order

import "github.com/gin-gonic/gin"

type IHandler interface {
	Create(c *gin.Context)
	Quote(c *gin.Context)
	Status(c *gin.Context)
}
