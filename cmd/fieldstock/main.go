package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/api"
	"github.com/erazemk/fieldstock/internal/auth"
	"github.com/erazemk/fieldstock/internal/clock"
	"github.com/erazemk/fieldstock/internal/config"
	"github.com/erazemk/fieldstock/internal/db"
	"github.com/erazemk/fieldstock/internal/inventory"
	"github.com/erazemk/fieldstock/internal/logging"
	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/notify"
	"github.com/erazemk/fieldstock/internal/orders"
	"github.com/erazemk/fieldstock/internal/push"
	"github.com/erazemk/fieldstock/internal/store"
)

func main() {
	cfg := config.Load()

	fs := flag.NewFlagSet("fieldstock", flag.ContinueOnError)

	fs.StringVar(&cfg.DB.Path, "db", cfg.DB.Path, "")
	fs.StringVar(&cfg.DB.Path, "d", cfg.DB.Path, "")

	fs.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "")
	fs.StringVar(&cfg.Server.Addr, "a", cfg.Server.Addr, "")

	fs.StringVar(&cfg.Server.AdminUser, "user", cfg.Server.AdminUser, "")
	fs.StringVar(&cfg.Server.AdminUser, "u", cfg.Server.AdminUser, "")

	fs.StringVar(&cfg.Logger.Path, "log", cfg.Logger.Path, "")
	fs.StringVar(&cfg.Logger.Path, "l", cfg.Logger.Path, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: fieldstock [flags]

Flags:
  -d, -db <path>          SQLite database path (env FIELDSTOCK_DB, default: fieldstock.sqlite3)
  -a, -addr <host:port>   listen address (env FIELDSTOCK_ADDR, default: :8080)
  -u, -user <name>        admin username on first run (env FIELDSTOCK_ADMIN_USER, default: Admin)
  -l, -log <path>         log file path (env LOG_FILE, default: stdout/stderr only)
  -h, -help               show this help and exit

Push delivery and notification counters are configured through the
environment: PUSH_ENABLED, EXPO_PUSH_URL, EXPO_ACCESS_TOKEN,
FCM_CREDENTIALS_FILE, PUSH_TIMEOUT, REDIS_ADDR, REDIS_PASSWORD, REDIS_DB.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// INFO/WARN go to stdout, ERROR to stderr, everything to the optional file.
	logger, closeLog, err := logging.New(cfg.Logger.Level, cfg.Logger.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Error("fieldstock stopped", zap.Error(err))
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	clk := clock.NewSystem()

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DB.Path); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DB.Path, cfg.Server.AdminUser, clk.Now())
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DB.Path, cfg.Server.AdminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	logger.Info("database ready", zap.String("path", cfg.DB.Path))

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return err
	}

	stats, closeStats := notificationStats(cfg, database, logger)
	defer closeStats()

	notifier, err := newNotifier(cfg, database, stats, clk, logger)
	if err != nil {
		return err
	}
	// Let in-flight deliveries finish before the database closes.
	defer notifier.Wait()

	router := api.NewRouter(api.Deps{
		DB:        database,
		JWTSecret: jwtSecret,
		Clock:     clk,
		Inventory: inventory.NewService(database, clk, notifier, logger.Named("inventory")),
		Orders:    orders.NewService(database, clk, notifier, logger.Named("orders")),
		Stats:     stats,
		Logger:    logger.Named("http"),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", cfg.Server.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("server stopped, closing database")
	return nil
}

// notificationStats picks the counter backend: Redis when configured and
// reachable, SQLite otherwise.
func notificationStats(cfg *config.Config, database *sqlx.DB, logger *zap.Logger) (notify.StatsStore, func()) {
	sqlStats := &notify.SQLStats{DB: database}
	if cfg.Redis.Addr == "" {
		return sqlStats, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, keeping notification stats in sqlite",
			zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		client.Close()
		return sqlStats, func() {}
	}

	logger.Info("notification stats in redis", zap.String("addr", cfg.Redis.Addr))
	return &notify.RedisStats{Client: client, TTL: 400 * 24 * time.Hour}, func() { client.Close() }
}

// newNotifier builds the crew notification pipeline. With push disabled the
// dispatcher still runs so delivery attempts are counted as failed.
func newNotifier(cfg *config.Config, database *sqlx.DB, stats notify.StatsStore, clk clock.Clock, logger *zap.Logger) (*notify.Async, error) {
	log := logger.Named("notify")

	var (
		expo notify.ExpoSender
		fcm  notify.FCMSender
	)
	if cfg.Push.Enabled {
		expo = push.NewExpoClient(cfg.Push.ExpoURL, cfg.Push.ExpoAccessToken)
		if cfg.Push.FCMCredentialsFile != "" {
			client, err := push.NewFCMClient(context.Background(), cfg.Push.FCMCredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("setting up fcm: %w", err)
			}
			fcm = client
		}
		log.Info("push delivery enabled", zap.Bool("fcm", fcm != nil))
	} else {
		log.Info("push delivery disabled")
	}

	dispatcher := notify.NewDispatcher(&notify.StoreMembers{DB: database}, expo, fcm, stats, clk, log, cfg.Push.Timeout)
	return notify.NewAsync(dispatcher, log), nil
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminUsername string, now time.Time) (*sqlx.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sqlx.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fail(err)
	}

	if _, err := store.CreateUser(context.Background(), database, adminUsername, hash, model.RoleAdmin, now); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
