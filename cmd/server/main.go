package main

import (
	"github.com/egpaydcx/egpay-backend/internal/server"
)

// @title			EGPAY Backend API
// @version		1.0
// @description	Buy order intake and settlement API
// @BasePath		/api/v1
// @securityDefinitions.apikey	AdminSecret
// @in							header
// @name						X-Admin-Secret
func main() {
	server.Init()
}
