package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"raindrive/internal/auth"
	"raindrive/internal/config"
	"raindrive/internal/handler"
	"raindrive/internal/repository"
	"raindrive/internal/service"
	"raindrive/internal/service/s3"
	"raindrive/internal/weather"
)

func connectWithRetry(cfg *config.Config, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.Database.GetDSN()

	// The target database may not exist on a fresh instance; bootstrap it
	// through the always-present postgres database.
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Database.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Database.Name)
		_, err = pgDB.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.Database.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runTrashSweeper hard-deletes expired trash on a fixed interval until the
// context is cancelled.
func runTrashSweeper(ctx context.Context, drive *service.DriveService, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			result, err := drive.SweepExpiredTrash(ctx, cutoff)
			if err != nil {
				log.Printf("Trash sweep failed: %v", err)
				continue
			}
			if result.FilesDeleted > 0 || result.FoldersDeleted > 0 {
				log.Printf("Trash sweep removed %d files and %d folders", result.FilesDeleted, result.FoldersDeleted)
			}
		}
	}
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(appConfig, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatalf("Failed to load auth config: %v", err)
	}
	auth.Init(authConfig.Secret)

	userRepo := repository.NewUserRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	fileRepo := repository.NewFileRepository(db)
	trashRepo := repository.NewTrashRepository(db)

	folderService := service.NewFolderService(folderRepo)
	fileService := service.NewFileService(fileRepo, folderRepo, s3Client)
	trashService := service.NewTrashService(trashRepo, folderRepo, fileRepo, s3Client)
	quotaService := service.NewQuotaService(fileRepo, appConfig.Storage.QuotaBytes, appConfig.Storage.MaxFileBytes)
	driveService := service.NewDriveService(userRepo, folderService, fileService, trashService, quotaService, nil)

	weatherService := weather.NewService(nil)

	folderHandler := handler.NewFolderHandler(driveService)
	fileHandler := handler.NewFileHandler(driveService, weatherService)
	trashHandler := handler.NewTrashHandler(driveService)
	quotaHandler := handler.NewQuotaHandler(driveService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/folders", folderHandler.GetRootContent)
		r.Post("/folders", folderHandler.CreateFolder)

		r.Route("/folders/{folderID}", func(r chi.Router) {
			r.Get("/", folderHandler.GetFolderContent)
			r.Get("/path", folderHandler.GetFolderPath)
			r.Put("/rename", folderHandler.RenameFolder)
			r.Put("/move", folderHandler.MoveFolder)
			r.Post("/copy", folderHandler.CopyFolder)
			r.Delete("/", folderHandler.DeleteFolder)
		})

		r.Post("/files", fileHandler.RegisterFile)
		r.Post("/files/upload", fileHandler.UploadFile)
		r.Get("/files/recent", fileHandler.GetRecentFiles)

		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Put("/rename", fileHandler.RenameFile)
			r.Put("/move", fileHandler.MoveFile)
			r.Post("/copy", fileHandler.CopyFile)
			r.Get("/download", fileHandler.DownloadFile)
		})

		r.Route("/trash", func(r chi.Router) {
			r.Get("/", trashHandler.GetTrashItems)
			r.Post("/delete", trashHandler.MoveToTrash)
			r.Post("/restore", trashHandler.RestoreItem)
			r.Post("/purge", trashHandler.DeletePermanently)
			r.Post("/empty", trashHandler.EmptyTrash)
		})

		r.Get("/quota", quotaHandler.GetQuota)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	retention := time.Duration(appConfig.Storage.RetentionDays) * 24 * time.Hour
	interval := time.Duration(appConfig.Storage.SweepMinutes) * time.Minute
	go runTrashSweeper(sweepCtx, driveService, retention, interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
