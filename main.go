package main

import (
	"log"
	"strings"

	"vault/config"
	"vault/database"
	"vault/middleware"
	"vault/realtime"
	v1 "vault/routes/v1"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// @title Vault API
// @description Unlock registry and global event synchronization for the Vault archive
// @version 1.0
// @BasePath /api/v1
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	config.LoadEnv()
	config.LoadPuzzles()
	database.InitDB()
	realtime.InitRedisBridge(config.RedisAddr)

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	v1.Register(r)
	middleware.UpdateSystemMetrics()

	log.Printf("Vault API listening on port %s", config.ServerPort)
	if err := r.Run(":" + config.ServerPort); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}
