package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ktarasov/placehub/internal/config"
	"github.com/ktarasov/placehub/internal/es"
	"github.com/ktarasov/placehub/internal/handlers"
	"github.com/ktarasov/placehub/internal/logging"
	authmw "github.com/ktarasov/placehub/internal/middleware/auth"
	loggingmw "github.com/ktarasov/placehub/internal/middleware/logging"
	"github.com/ktarasov/placehub/internal/mykafka"
	"github.com/ktarasov/placehub/internal/repo"
	"github.com/ktarasov/placehub/internal/service/auth"
	"github.com/ktarasov/placehub/internal/service/geo"
	"github.com/ktarasov/placehub/internal/service/token"
	"github.com/ktarasov/placehub/internal/storage"
	httpserver "github.com/ktarasov/placehub/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.NewClient(ctx, configuration)
	cancel()
	if err != nil {
		log.Fatal(err)
	}

	dataRepo := repo.New(db)
	tokenService := token.NewService(
		dataRepo,
		[]byte(configuration.JWT_SECRET),
		configuration.ACCESS_TTL,
		configuration.REFRESH_TTL,
	)
	authService := auth.NewService(dataRepo, tokenService)
	geoEngine := geo.NewEngine(dataRepo)
	guard := authmw.NewGuard(tokenService, dataRepo)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Guard:         guard,
		AuthHandler:   &handlers.AuthHandler{Auth: authService, Producer: prod, RefreshTTL: configuration.REFRESH_TTL},
		PlaceHandler:  &handlers.PlaceHandler{DB: db, Geo: geoEngine, ES: esClient, Index: "places", Storage: store, Producer: prod},
		ReviewHandler: &handlers.ReviewHandler{DB: db, Producer: prod},
		RouteHandler:  &handlers.RouteHandler{DB: db},
		UserHandler:   &handlers.UserHandler{Repo: dataRepo},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: "places"},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
