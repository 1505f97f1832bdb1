package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ltgsite/internal/api"
	"ltgsite/internal/config"
	"ltgsite/internal/intake"
	"ltgsite/internal/mail"
	"ltgsite/internal/mailfn"
	"ltgsite/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// missing storage or mail credentials are reported per request
	var signer mailfn.Signer
	if cfg.Storage.Endpoint != "" && cfg.Storage.SecretAccessKey != "" {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logger.Error("storage unavailable", slog.Any("error", err))
		} else {
			signer = client
		}
	}

	var sender mailfn.Sender
	if mailClient := mail.NewClient(cfg.Mail, cfg.Backend.RequestTimeout); mailClient.Configured() {
		sender = mailClient
	}

	handler := mailfn.NewHandler(signer, sender, mailfn.Options{
		From:       cfg.Mail.From,
		Recipients: cfg.Mail.Recipients,
		Source:     cfg.Intake.Source,
		Logger:     logger,
	})

	router := api.NewRouter(api.RouterOptions{Server: intake.FunctionName, Logger: logger, NoCORS: true})
	handler.Register(router, "/"+intake.FunctionName)
	handler.Register(router, "/functions/v1/"+intake.FunctionName)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.FunctionPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("function listening",
			slog.String("addr", srv.Addr),
			slog.Bool("storage", signer != nil),
			slog.Bool("mail", sender != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start function server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("function shutdown failed", slog.Any("error", err))
	}
}
