// Package main, huddle mesajlaşma sunucusunun giriş noktasıdır.
//
// Bu dosyanın görevi: Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Logger ve (opsiyonel) tracing'i kur
//  3. Database'i başlat, migration'ları uygula
//  4. Repository Store'unu oluştur
//  5. WebSocket Hub'ı başlat
//  6. (Opsiyonel) NATS bağlantısı
//  7. Service'leri oluştur, hub callback'lerini bağla
//  8. Handler'ları oluştur, route'ları bağla
//  9. Middleware zinciri + CORS
//  10. HTTP Server'ı başlat
//  11. Graceful shutdown
//
// Global değişken YOK: her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/akinalp/huddle/config"
	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/middleware"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/pkg/natsbus"
	"github.com/akinalp/huddle/pkg/tracing"
	"github.com/akinalp/huddle/ws"
)

func main() {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main] failed to load config: %v\n", err)
		os.Exit(1)
	}

	// ─── 2. Logger + Tracing ───
	var log *logger.Logger
	if cfg.Log.Env == "development" {
		log, err = logger.NewDevelopment(cfg.Log.Level)
	} else {
		log, err = logger.New(cfg.Log.Level)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main] failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("huddle server starting", zap.Int("port", cfg.Server.Port))

	if cfg.Tracing.Enabled {
		tp, err := tracing.Init(context.Background(), "huddle", cfg.Tracing.Endpoint)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tracing.Shutdown(tp); err != nil {
				log.Warn("tracing shutdown error", zap.Error(err))
			}
		}()
		log.Info("tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}

	// ─── 3. Database ───
	db, err := database.New(cfg.Database.Path, database.Migrations(), log.Named("database"))
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// ─── 4. Repository Layer ───
	store := initStore(db.Conn)

	// ─── 5. WebSocket Hub ───
	//
	// Hub, tüm oturumları ve konuşma aboneliklerini yönetir.
	// `go hub.Run()` register/unregister event loop'unu başlatır.
	// Hub aynı zamanda EventPublisher interface'ini implement eder -
	// service'ler hub'a doğrudan değil interface üzerinden erişir.
	hub := ws.NewHub(ws.Config{
		Workers:        cfg.Gateway.Workers,
		QueueSize:      cfg.Gateway.QueueSize,
		SendBufferSize: cfg.Gateway.SendBufferSize,
		MaxDrops:       64,
		TypingTTL:      cfg.Gateway.TypingTTL,
		TypingSweep:    500 * time.Millisecond,
	}, log.Named("hub"))

	// ─── 6. NATS (opsiyonel) ───
	var bus *natsbus.Client
	if cfg.NATS.URL != "" {
		bus, err = natsbus.Connect(natsbus.Config{
			URL:           cfg.NATS.URL,
			Token:         cfg.NATS.Token,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		}, log.Named("nats"))
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
	} else {
		log.Info("NATS not configured, downstream publishing disabled")
	}

	// ─── 7. Service Layer ───
	svcs, err := initServices(store, hub, bus, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize services", zap.Error(err))
	}

	// Callback'ler Run'dan önce bağlanır; hub ilk oturumda hepsini hazır bulur.
	registerHubCallbacks(hub, svcs, log.Named("gateway"))
	go hub.Run()

	svcs.Presence.Start()

	rootCtx, stopJobs := context.WithCancel(context.Background())
	svcs.Retention.Start(rootCtx)

	// ─── 8. Handlers + Routes ───
	h := initHandlers(svcs, db.Conn, hub, cfg)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Tokens, cfg)

	// ─── 9. Middleware zinciri + CORS ───
	//
	// Logging en içtedir: mux'un eşleştirdiği pattern (r.Pattern) metrik etiketi olur.
	var handler http.Handler = middleware.Logging(log.Named("http"))(mux)
	handler = chimiddleware.Recoverer(handler)
	handler = chimiddleware.RealIP(handler)
	handler = chimiddleware.RequestID(handler)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	handler = c.Handler(handler)

	// ─── 10. HTTP Server ───
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// ─── 11. Graceful Shutdown ───
	//
	// SIGINT (Ctrl+C) veya SIGTERM (docker stop) gelince:
	//   - Yeni bağlantı kabul etmeyi durdur
	//   - Açık oturumları kapat, worker pool'u boşalt
	//   - Arka plan job'larını durdur, bekleyen sink teslimlerini bekle
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	hub.Shutdown()
	svcs.Presence.Stop()
	stopJobs()
	svcs.Retention.Stop()
	svcs.MessageLimiter.Stop()
	svcs.Notification.Wait()
	if bus != nil {
		bus.Close()
	}

	log.Info("server stopped")
}
