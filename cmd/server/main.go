package main // Entry point package

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tripdesk/booking/internal/backend"
	"github.com/tripdesk/booking/internal/booking"
	"github.com/tripdesk/booking/internal/config"
	"github.com/tripdesk/booking/internal/database"
	"github.com/tripdesk/booking/internal/handler"
	"github.com/tripdesk/booking/internal/ocr"
	"github.com/tripdesk/booking/internal/payment"
	"github.com/tripdesk/booking/internal/processor"
	"github.com/tripdesk/booking/internal/queue"
	"github.com/tripdesk/booking/internal/repository"
	"github.com/tripdesk/booking/internal/router"
	"github.com/tripdesk/booking/internal/scan"
	"github.com/tripdesk/booking/internal/session"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load() // Load environment config

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Payment journal.  Without MySQL the journal lives in memory, which
	// is fine for development but loses reconciliation data on restart.
	var journal payment.Journal
	if cfg.HasDatabase() {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to MySQL")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("failed to ensure payment journal schema")
		}
		cancel()
		journal = repository.NewJournalRepo(db)
	} else {
		log.Warn().Msg("no database configured; payment journal is in-memory only")
		journal = repository.NewMemoryJournal()
	}

	// Wizard sessions.  Redis lets a wizard survive the redirect to a
	// processor challenge page and server restarts; the in-memory store
	// covers development.
	rdb := config.NewRedisClient()
	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		log.Warn().Msg("redis unavailable; wizard sessions are in-memory only")
		sessions = session.NewMemoryStore()
	}

	// Document scanning.  When tesseract is missing the scan endpoint
	// answers 503 and travelers are entered manually.
	var extractor *scan.Extractor
	tess := ocr.NewTesseract()
	if cfg.TesseractBin != "" {
		tess.Binary = cfg.TesseractBin
	}
	tess.Lang = cfg.OCRLang
	if tess.Available() {
		engines := make([]ocr.Engine, 0, cfg.OCREngines)
		for i := 0; i < cfg.OCREngines; i++ {
			engines = append(engines, tess)
		}
		extractor = scan.NewExtractor(ocr.NewPool(engines...), log.Logger)
	} else {
		log.Warn().Str("binary", tess.Binary).Msg("tesseract not found; document scanning disabled")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	backendClient := backend.NewHTTPClient(cfg.BackendURL, httpClient)
	processorClient := processor.NewHTTPClient(cfg.ProcessorURL, httpClient)

	initiator := booking.NewInitiator(backendClient, log.Logger)
	orch := payment.NewOrchestrator(backendClient, processorClient, journal, log.Logger, cfg.WaiverDelay)

	h := handler.NewWizardHandler(sessions, initiator, orch, extractor, log.Logger)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterWizard(e, h, rdb, cfg.ScanPerMinute)

	// Consume confirmed-booking events in the background; the consumer
	// reconnects on its own when RabbitMQ drops.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Warn().Err(err).Msg("booking event consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal().Err(err).Msg("server stopped")
	}
}
