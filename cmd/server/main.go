package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shalset/barcode-backend/internal/api"
	"github.com/shalset/barcode-backend/internal/auth"
	"github.com/shalset/barcode-backend/internal/config"
	"github.com/shalset/barcode-backend/internal/store"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	configPath := filepath.Join(exeDir, "inventory.yaml")
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == "" {
		fmt.Println("JWT_SECRET is not set; refusing to start with an empty token secret")
		os.Exit(1)
	}

	// Open the database
	st, err := store.Open(cfg.Database.Path, store.Options{
		Threads:     cfg.Database.Threads,
		MemoryLimit: cfg.Database.MemoryLimit,
	})
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// Seed the first operator account on an empty database
	if err := seedFirstUser(st, cfg); err != nil {
		fmt.Printf("Failed to seed initial user: %v\n", err)
		os.Exit(1)
	}

	// Start background scan retention cleanup
	if cfg.Retention.Enabled {
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.Retention.IntervalMinutes) * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Retention.Days)
				deleted, err := st.DeleteScansBefore(context.Background(), cutoff)
				if err != nil {
					fmt.Printf("[Cleanup] scan retention sweep failed: %v\n", err)
					continue
				}
				if deleted > 0 {
					fmt.Printf("[Cleanup] removed %d scans older than %d days\n", deleted, cfg.Retention.Days)
				}
			}
		}()
	}

	authSvc := auth.NewService(st, cfg.Auth.JWTSecret, cfg.TokenTTLDuration())
	h := api.NewHandler(st, authSvc, Version)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			// WebSocket connections stay open indefinitely
			return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.Gzip())
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	h.RegisterRoutes(e)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("Barcode Inventory Server %s (built %s)\n", Version, BuildTime)
	fmt.Printf("  Config:   %s\n", configPath)
	fmt.Printf("  Database: %s\n", cfg.Database.Path)
	fmt.Printf("  Listen:   http://%s\n\n", cfg.GetServerAddr())

	e.Logger.Fatal(e.StartServer(s))
}

// seedFirstUser creates the configured operator account when the user
// table is empty, so a fresh install is immediately usable.
func seedFirstUser(st store.Store, cfg *config.AppConfig) error {
	count, err := st.CountUsers(context.Background())
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if cfg.Auth.SeedUsername == "" || cfg.Auth.SeedPassword == "" {
		return errors.New("empty database and no seed credentials configured")
	}

	hash, err := auth.HashPassword(cfg.Auth.SeedPassword)
	if err != nil {
		return err
	}
	user, err := st.CreateUser(context.Background(), cfg.Auth.SeedUsername, cfg.Auth.SeedFullName, hash)
	if err != nil {
		return err
	}
	fmt.Printf("[Seed] created initial user %q; change its password after first login\n", user.Username)
	return nil
}
