package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"lisanchat/internal/api"
	"lisanchat/internal/auth"
	"lisanchat/internal/cache"
	"lisanchat/internal/chat"
	"lisanchat/internal/config"
	"lisanchat/internal/llm"
	"lisanchat/internal/middleware"
	"lisanchat/internal/storage"
	"lisanchat/internal/worker"
)

func main() {
	cfgPath := os.Getenv("LISANCHAT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("LISANCHAT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("database driver: %s", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// Redis is optional: without it language lookups and translations
	// simply skip the cache.
	rdb, err := cache.NewClient(cfg)
	if err != nil {
		log.Printf("redis unavailable, continuing without cache: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatalf("init llm client: %v", err)
	}

	jwtSecret := os.Getenv("LISANCHAT_JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "changeme"
		log.Print("LISANCHAT_JWT_SECRET not set, using insecure default")
	}
	authService := auth.NewService(db, rdb, jwtSecret, time.Hour)

	store := chat.NewStore(db)
	queue := worker.NewQueue(64)
	translator := chat.NewTranslator(llmClient, rdb)
	summarizer := chat.NewSummarizer(store, llmClient, queue)
	chatService := chat.NewService(store, llmClient, authService, translator, summarizer)

	limiter := middleware.NewLimiterStore(
		cfg.BasicConfig.RequestsPerMinute,
		cfg.BasicConfig.RateBurst,
		5*time.Minute,
	)
	handlers := api.NewHandler(chatService, authService, limiter.Middleware())

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
