package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookrec/internal/auth"
	"bookrec/internal/books"
	"bookrec/internal/catalog"
	"bookrec/internal/covers"
	"bookrec/internal/events"
	"bookrec/internal/store"
	"bookrec/pkg/database"
	"bookrec/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Event feed first (so you notice binding errors early)
	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))
	tcpSrv := events.NewServer(":7070", hub)

	svc := catalog.NewService(store.New(db), covers.NewResolver(), hub)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	n, err := svc.Load(loadCtx)
	cancelLoad()
	if err != nil {
		log.Fatalf("load catalog failed: %v", err)
	}
	log.Printf("[db] loaded %d books from %s", n, cfg.Path)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Book Recommendations API",
			"endpoints": gin.H{
				"GET    /books":           "Number of books in the database",
				"GET    /books/all":       "List all books with full details",
				"PUT    /books/:id":       "Update fields of a single book",
				"DELETE /books/:id":       "Delete a single book",
				"POST   /upload-csv":      "Upload a CSV (dedup + conflict detection)",
				"GET    /conflicts":       "View pending conflicts from last upload",
				"POST   /confirm-updates": "Confirm updates for conflicted books",
				"POST   /resolve-covers":  "Resolve/refresh cover image URLs",
				"POST   /recommend":       "Get ranked recommendations (JSON body)",
				"POST   /auth/token":      "Exchange the admin key for a bearer token",
			},
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"books":       svc.Count(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Auth
	authCfg := utils.LoadAuthConfig()
	keys := auth.KeyChecker{Key: authCfg.AdminKey, Hash: authCfg.AdminKeyHash}
	tokens := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authHandler := auth.NewHandler(keys, tokens)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Catalog API: reads are public, writes require the admin key.
	handler := books.NewHandler(svc)
	handler.RegisterPublic(router)

	admin := router.Group("/")
	admin.Use(auth.RequireAdmin(keys, tokens))
	handler.RegisterAdmin(admin)

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
