package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/attendancetracker/internal/attendance"
	"github.com/attendancetracker/internal/calendars"
	httpx "github.com/attendancetracker/internal/http"
	"github.com/attendancetracker/internal/http/static"
	"github.com/attendancetracker/internal/http/templates"
	"github.com/attendancetracker/internal/keys"
	"github.com/attendancetracker/internal/migrations"
	"github.com/attendancetracker/internal/schedule"
	"github.com/attendancetracker/internal/sqlstore"
	"github.com/attendancetracker/internal/statistics"
	"github.com/attendancetracker/internal/supabase"
	"github.com/attendancetracker/internal/telegram"
	"github.com/attendancetracker/internal/timezone"
)

const (
	storeBadger   = "badger"
	storeSQLite   = "sqlite"
	storePostgres = "postgres"
	storeSupabase = "supabase"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("[ERROR] .env: %s", err)
	}

	addr := flag.String("address", ":http", "http address to listen to")
	dbPath := flag.String("database-path", "attendance.db", "path to the database")
	key := flag.String("encryption-key", "", "encryption key for the database, unencrypted if empty")
	storeKind := flag.String("store", storeBadger, "attendance store: badger, sqlite, postgres or supabase")
	databaseURL := flag.String("database-url", "attendance.sqlite", "sqlite file or postgres connection string")
	supabaseURL := flag.String("supabase-url", "", "supabase project url")
	supabaseKey := flag.String("supabase-key", "", "supabase anon public key")
	schedulePath := flag.String("schedule", "", "path to a yaml schedule, built-in schedule if empty")
	timezoneName := flag.String("timezone", "", "timezone of the schedule, UTC if empty")
	telegramToken := flag.String("telegram-token", "", "telegram bot token, bot is disabled if empty")
	watch := flag.Bool("watch", false, "if true, will serve from filesystem")
	flag.Parse()

	for env, value := range map[string]*string{
		"DATABASE_URL":      databaseURL,
		"SUPABASE_URL":      supabaseURL,
		"SUPABASE_ANON_KEY": supabaseKey,
		"TELEGRAM_TOKEN":    telegramToken,
		"TZ_NAME":           timezoneName,
		"ENCRYPTION_KEY":    key,
	} {
		if v := os.Getenv(env); v != "" {
			*value = v
		}
	}

	var encryptionKey keys.Key
	if *key != "" {
		var err error
		if encryptionKey, err = keys.ParseKey(*key); err != nil {
			log.Fatalf("[ERROR] encryption-key: %s", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var logHandler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: new(slog.LevelVar),
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	db, err := badger.Open(encryptionKey.Apply(badger.DefaultOptions(*dbPath)))
	if err != nil {
		log.Fatalf("[ERROR] db: %s", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		log.Fatalf("[ERROR] db migrations: %s", err)
	}

	repository, closeRepository, err := openRepository(ctx, logger, db, *storeKind, *databaseURL, supabase.Config{
		URL:     *supabaseURL,
		AnonKey: *supabaseKey,
	})
	if err != nil {
		log.Fatalf("[ERROR] store: %s", err)
	}
	defer closeRepository()

	catalog := schedule.Default()
	if *schedulePath != "" {
		if catalog, err = schedule.Load(*schedulePath); err != nil {
			log.Fatalf("[ERROR] schedule: %s", err)
		}
	}

	location, err := timezone.Load(*timezoneName)
	if err != nil {
		log.Fatalf("[ERROR] timezone: %s", err)
	}
	now := timezone.Clock(location)

	cache := attendance.NewCache(repository)
	statisticsService := statistics.NewService(cache, catalog, now)
	calendarsService := calendars.NewService(calendars.NewStore(db), cache, catalog, location, now)

	var bot *telegram.Bot
	if *telegramToken != "" {
		if bot, err = telegram.NewBot(telegram.NewStore(db), statisticsService, *telegramToken); err != nil {
			log.Fatalf("[ERROR] telegram: %s", err)
		}
		cache.OnMarked(bot.NotifyLowAttendance)
		logger = slog.New(telegram.NewSlogHandler(bot, logHandler))
		slog.SetDefault(logger)
	}

	refreshCtx, cancelRefresh := context.WithTimeout(ctx, httpx.RequestTimeout)
	if err := cache.Refresh(refreshCtx); err != nil {
		logger.Error("load attendance", "store", *storeKind, "error", err)
	}
	cancelRefresh()

	var renderer templates.Renderer
	var staticHandler http.Handler
	if *watch {
		renderer = templates.NewFilesystemTemplates("./internal/http/templates")
		staticHandler = static.NewFilesystemHandler("./internal/http/static/files")
	} else {
		renderer = templates.NewEmbedTemplates()
		staticHandler = static.NewEmbedHandler()
	}

	httpServer := http.Server{
		Handler: httpx.Handler(
			logger,
			renderer,
			staticHandler,
			cache,
			catalog,
			statisticsService,
			calendarsService,
			location,
			now,
		),
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("[ERROR] tcp: %s", err)
	}
	log.Printf("[INFO] listening on %s", ln.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("[INFO] shutting down")

		shutdownTimeout := 15 * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	if bot != nil {
		g.Go(func() error {
			if err := bot.Listen(gctx); err != nil {
				return fmt.Errorf("telegram: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("[ERROR] %s", err)
	}

	log.Printf("[INFO] application stopped")
}

func openRepository(
	ctx context.Context,
	logger *slog.Logger,
	db *badger.DB,
	kind string,
	databaseURL string,
	supabaseConfig supabase.Config,
) (attendance.Repository, func() error, error) {
	noop := func() error { return nil }
	switch kind {
	case storeBadger:
		return attendance.NewStore(db), noop, nil
	case storeSQLite, storePostgres:
		driver := sqlstore.DriverSQLite
		if kind == storePostgres {
			driver = sqlstore.DriverPostgres
		}
		store, err := sqlstore.Open(ctx, driver, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case storeSupabase:
		client, err := supabase.NewClient(logger, supabaseConfig, nil)
		if err != nil {
			return nil, nil, err
		}
		return client, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}
}
