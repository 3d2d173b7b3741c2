package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-tracker/internal/app"
	"quiz-tracker/internal/config"
	"quiz-tracker/internal/httpapi"
)

func main() {
	configPath := flag.String("config", os.Getenv("QUIZ_CONFIG"), "optional YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides ADDR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	quizApp, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer func() {
		if err := quizApp.Close(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.NewRouter(quizApp.Service, httpapi.RouterOptions{
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("quiz-service listening on %s (batch policy %s)", cfg.Addr, cfg.Policy())
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server failed: %v", err)
		}
	case <-ctx.Done():
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}
}
