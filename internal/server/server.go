package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoflow/internal/cache"
	"todoflow/internal/config"
	"todoflow/internal/handler"
	"todoflow/internal/logging"
	"todoflow/internal/middleware"
	"todoflow/internal/realtime"
	"todoflow/internal/repository"
	"todoflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// taskListTTL bounds staleness when an invalidation is missed.
const taskListTTL = 5 * time.Minute

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	logging.Init(cfg.LogFile)

	// Setup GORM
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	log.Println("✅ Connected to database")

	if err := runMigrations(db, cfg.DBName); err != nil {
		return nil, err
	}

	// Redis backs the per-user task list cache
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	taskCache := cache.New(redisClient, "tasks:", taskListTTL)

	hub := realtime.NewHub()

	// Setup Gin
	r := gin.Default()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	shareRepo := repository.NewTaskShareRepository(db)

	// Initialize services and handlers
	taskService := service.NewTaskService(taskRepo, shareRepo, taskCache, hub)

	userHandler := handler.NewUserHandler(userRepo)
	taskHandler := handler.NewTaskHandler(taskService, userRepo)
	shareHandler := handler.NewTaskShareHandler(taskService, userRepo)
	eventsHandler := handler.NewEventsHandler(hub, userRepo)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		authorized.GET("/me", userHandler.Me)

		// Task routes
		authorized.GET("/tasks", taskHandler.List)
		authorized.GET("/tasks/stats", taskHandler.Stats)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.POST("/tasks", taskHandler.Create)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)

		// Task sharing routes
		authorized.POST("/tasks/:id/share", shareHandler.Share)
		authorized.DELETE("/tasks/:id/share/:email", shareHandler.Unshare)
		authorized.GET("/tasks/:id/shares", shareHandler.ListShares)

		// Realtime change feed
		authorized.GET("/events", eventsHandler.Stream)
	}

	return &Server{
		Engine: r,
		DB:     db,
		Config: cfg,
	}, nil
}

// runMigrations applies the SQL migrations in migrations/ on startup.
func runMigrations(db *gorm.DB, dbName string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("❌ failed to access DB handle: %w", err)
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("❌ failed to prepare migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", dbName, driver)
	if err != nil {
		return fmt.Errorf("❌ failed to load migrations: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("❌ failed to run migrations: %w", err)
	}
	log.Println("✅ Database schema up to date")
	return nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}

	log.Println("✅ Server exited properly")
}
