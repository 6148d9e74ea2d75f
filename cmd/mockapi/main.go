package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"servigo-client/config"
	"servigo-client/mockapi"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	config.Load()
	cfg := config.AppConfig.Mock

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := mockapi.OpenStore(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	if err := mockapi.Seed(db); err != nil {
		log.Fatal("Failed to seed store:", err)
	}

	job := mockapi.NewExpirationJob(db, 0)
	job.Start()
	defer job.Stop()

	server := mockapi.New(db, mockapi.Config{
		JWTSecret: cfg.JWTSecret,
		OTPLength: cfg.OTPLength,
		OTPExpiry: cfg.OTPExpiry,
	})

	log.Printf("🚀 Mock backend listening on :%s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server stopped:", err)
	}
}
