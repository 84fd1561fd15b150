package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/commercex-cart/app/internal/config"
	domcart "example.com/commercex-cart/app/internal/domain/cart"
	"example.com/commercex-cart/app/internal/infra/logging"
	"example.com/commercex-cart/app/internal/infra/persistence"
	"example.com/commercex-cart/app/internal/infra/security"
	httpapi "example.com/commercex-cart/app/internal/interface/http"
	cartuc "example.com/commercex-cart/app/internal/usecase/cart"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	issueToken := flag.String("issue-token", "", "print an API token for the given device id and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := printToken(cfg.Auth, *issueToken); err != nil {
			log.WithError(err).Fatal("issue token")
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("cart store stopped")
	}
}

func printToken(cfg config.AuthConfig, deviceID string) error {
	tokenSvc, err := security.NewJWTService(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	token, err := tokenSvc.GenerateToken(deviceID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	repo, err := persistence.Open(openCtx, cfg.Store)
	cancel()
	if err != nil {
		return err
	}

	svc := cartuc.NewService(repo, domcart.NewValidator(cfg.ValidationPolicy()), log)
	defer func() {
		if err := svc.Close(); err != nil {
			log.WithError(err).Warn("close cart store")
		}
	}()

	if err := svc.Refresh(ctx); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"driver":     cfg.Store.Driver,
		"validation": cfg.ValidationPolicy(),
		"items":      len(svc.Snapshot()),
	}).Info("cart store ready")

	if !cfg.HTTP.Enabled {
		<-ctx.Done()
		return nil
	}

	deps := httpapi.Dependencies{CartService: svc, Logger: log}
	if cfg.Auth.Secret != "" {
		tokenSvc, err := security.NewJWTService(cfg.Auth.Secret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		deps.TokenService = tokenSvc
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewAPI(deps).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
