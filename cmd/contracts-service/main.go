package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nurpe/fleetops-contracts/internal/auth"
	"github.com/nurpe/fleetops-contracts/internal/config"
	"github.com/nurpe/fleetops-contracts/internal/db"
	"github.com/nurpe/fleetops-contracts/internal/excel"
	httphandler "github.com/nurpe/fleetops-contracts/internal/http"
	"github.com/nurpe/fleetops-contracts/internal/http/middleware"
	"github.com/nurpe/fleetops-contracts/internal/logger"
	"github.com/nurpe/fleetops-contracts/internal/pdf"
	"github.com/nurpe/fleetops-contracts/internal/repository"
	"github.com/nurpe/fleetops-contracts/internal/service"
	"github.com/nurpe/fleetops-contracts/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	store, err := storage.NewDocumentStore(context.Background(), cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init document store")
	}

	contractRepo := repository.NewContractRepository(database)
	clientRepo := repository.NewClientRepository(database)
	pdfGenerator, err := pdf.NewGenerator()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init pdf generator")
	}
	excelGenerator := excel.NewGenerator()

	contractService := service.NewContractService(contractRepo, clientRepo, store, excelGenerator, pdfGenerator, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
