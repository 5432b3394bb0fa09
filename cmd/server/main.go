package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/redecorapp/redecor/internal/config"
	"github.com/redecorapp/redecor/internal/db"
	"github.com/redecorapp/redecor/internal/events"
	"github.com/redecorapp/redecor/internal/httpserver"
	"github.com/redecorapp/redecor/internal/logging"
	mw "github.com/redecorapp/redecor/internal/middleware"
	"github.com/redecorapp/redecor/internal/paypal"
	"github.com/redecorapp/redecor/internal/repo"
	"github.com/redecorapp/redecor/internal/replicate"
	"github.com/redecorapp/redecor/internal/search"
	"github.com/redecorapp/redecor/internal/service"
	"github.com/redecorapp/redecor/internal/storage"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.SessionSecret, "SESSION_SECRET")

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	rp := repo.New(gdb)

	producer := events.NewProducer(cfg.KafkaBrokers)

	searchClient, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}

	var store service.BlobStore
	if cfg.S3Bucket != "" {
		s3Init, cancelS3 := context.WithTimeout(context.Background(), 10*time.Second)
		s3Store, err := storage.NewS3Store(s3Init, storage.Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		cancelS3()
		if err != nil {
			log.Fatalf("storage init error: %v", err)
		}
		store = s3Store
	} else {
		log.Fatal("missing required env S3_BUCKET")
	}

	authSvc := &service.AuthService{
		Repo:            rp,
		LoginTokenTTL:   cfg.LoginTokenTTL,
		SessionTokenTTL: cfg.SessionTokenTTL,
	}
	creditSvc := &service.CreditService{Repo: rp, Events: producer}
	generateSvc := &service.GenerateService{
		Repo:            rp,
		Credits:         creditSvc,
		Generator:       replicate.NewClient(cfg.ReplicateAPIToken, cfg.ReplicateVersion),
		Store:           store,
		Indexer:         searchClient,
		Events:          producer,
		RefundOnFailure: cfg.RefundOnFailure,
	}

	session := &mw.SessionAuth{Secret: cfg.SessionSecret, TTL: 7 * 24 * time.Hour}

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(mw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{Svc: authSvc},
		Mobile: &httpserver.MobileHTTP{
			Auth:     authSvc,
			Credits:  creditSvc,
			Generate: generateSvc,
		},
		Web: &httpserver.WebHTTP{
			Auth:     authSvc,
			Credits:  creditSvc,
			Generate: generateSvc,
			Repo:     rp,
			Session:  session,
			Search:   searchClient,
			PayPal:   paypal.NewClient(cfg.PayPalBaseURL, cfg.PayPalClientID),
		},
		Session: session,
		Bearer:  &mw.BearerAuth{Auth: authSvc},
		Limiter: mw.NewRateLimiter(rate.Every(time.Second), 10),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	logger.Info("shutdown complete")
}
