package main

import (
	"log"

	"canvas-backend/internal/cache"
	"canvas-backend/internal/config"
	"canvas-backend/internal/database"
	"canvas-backend/internal/server"
)

func main() {
	cfg := config.Load()

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		log.Fatalf("❌ Database ping failed: %v", err)
	}
	log.Printf("✅ Database connected successfully")

	// document cache is optional; the API serves straight from Postgres without it
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("⚠️ Redis connection failed: %v (document cache disabled)", err)
			redisClient = nil
		} else {
			log.Printf("✅ Redis connected (%s)", cfg.Redis.Addr)
			defer redisClient.Close()
		}
	} else {
		log.Println("ℹ️ Redis disabled (document cache off)")
	}

	srv := server.New(cfg, db, redisClient)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
