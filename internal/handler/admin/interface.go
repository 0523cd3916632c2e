package admin

import "github.com/gin-gonic/gin"

type IHandler interface {
	Approve(c *gin.Context)
	Reject(c *gin.Context)
	Execute(c *gin.Context)
	Fail(c *gin.Context)
	GetOrder(c *gin.Context)
	ListOrders(c *gin.Context)
	HotWallet(c *gin.Context)
}
