package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gantry/api/internal/access"
	"gantry/api/internal/analysis"
	"gantry/api/internal/app"
	"gantry/api/internal/archive"
	"gantry/api/internal/config"
	"gantry/api/internal/history"
	"gantry/api/internal/search"
	"gantry/api/internal/session"
	"gantry/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var (
		port store.SnapshotPort
		db   *sql.DB
	)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		var err error
		db, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()
		snapshots, err := store.NewPostgresSnapshots(ctx, db)
		if err != nil {
			log.Fatalf("snapshot table setup failed: %v", err)
		}
		port = snapshots
		log.Printf("Using PostgreSQL snapshot storage")
	} else {
		snapshots, err := store.NewFileSnapshots(cfg.DataDir)
		if err != nil {
			log.Fatalf("data dir setup failed: %v", err)
		}
		port = snapshots
		log.Printf("Using file snapshot storage in %s", cfg.DataDir)
	}

	policy := access.Policy{LockDisplayName: cfg.LockDisplayName}
	records := store.NewRecordStore(port, policy)
	records.Load(ctx)

	// The audit trail commits snapshot files after every flush. Only the
	// file backend has files on disk to track.
	var historyService *history.Service
	if files, ok := port.(*store.FileSnapshots); ok {
		svc, err := history.Open(files.Dir())
		if err != nil {
			log.Printf("WARNING: history disabled: %v", err)
		} else {
			historyService = svc
			records.SetAfterFlush(func(kind store.Kind) {
				if err := historyService.CommitSnapshot(string(kind)+".json", "gantry", "update "+string(kind)); err != nil {
					log.Printf("history commit failed for %s: %v", kind, err)
				}
			})
		}
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewLocal(records))
	searchService.ReindexAll(records.AllProcurement(), records.AllOperations())

	var sessionStore session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessionStore = redisStore
		log.Printf("Using Redis session storage")
	} else {
		sessionStore = session.NewMemoryStore()
		log.Printf("Using in-memory session storage")
	}
	sessions := session.NewService(sessionStore, []byte(cfg.TokenSecret), cfg.SessionTTL)

	var archiveService *archive.Service
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		svc, err := archive.New(ctx, archive.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Printf("WARNING: export archiving disabled: %v", err)
		} else {
			archiveService = svc
		}
	}

	var analyzer analysis.Collaborator
	if strings.TrimSpace(cfg.AnalysisURL) != "" {
		analyzer = analysis.NewClient(cfg.AnalysisURL)
	}

	ready := func(ctx context.Context) error {
		if db != nil {
			return db.PingContext(ctx)
		}
		return sessionStore.Ping(ctx)
	}

	service := app.New(cfg, app.Deps{
		Records:  records,
		Sessions: sessions,
		Search:   searchService,
		History:  historyService,
		Archive:  archiveService,
		Analyzer: analyzer,
		Ready:    ready,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Gantry API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
