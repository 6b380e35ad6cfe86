package main

import (
	"net/http"
	"time"

	"pet-med-tracker/internal/adapters/auth/remote"
	"pet-med-tracker/internal/config"
	"pet-med-tracker/internal/platform/logger"
	"pet-med-tracker/internal/ports/auth"
	"pet-med-tracker/internal/router"
)

// @title        Pet Med Tracker API
// @version      1.0
// @description  Programación de medicación, dosis pendientes y registro idempotente de administraciones.
// @BasePath     /
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.NewFromEnv()
		fallback.Fatal().Err(err).Msg("config load failed")
	}

	log := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		App:    cfg.AppName,
	})

	var verifier auth.AuthVerifier
	if cfg.AuthBaseURL != "" {
		client, err := remote.NewClient(remote.Config{
			BaseURL: cfg.AuthBaseURL,
			APIKey:  cfg.AuthAPIKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("auth client init failed")
		}
		verifier = remote.NewVerifier(client)
	} else if cfg.IsProduction() {
		log.Fatal().Msg("AUTH_BASE_URL is required in production")
	} else {
		log.Warn().Msg("no auth verifier configured, running in dev mode")
	}

	r := router.NewRouter(router.Options{
		AuthVerifier:      verifier,
		Logger:            &log,
		DueCacheTTL:       cfg.DueCacheTTL(),
		DefaultCutoffMins: cfg.CutoffDefaultMins,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}
