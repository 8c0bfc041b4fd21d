package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/educoin/internal/archive"
	"github.com/jmerrifield20/educoin/internal/auth"
	"github.com/jmerrifield20/educoin/internal/educoin/handler"
	"github.com/jmerrifield20/educoin/internal/educoin/service"
	"github.com/jmerrifield20/educoin/internal/feed"
	"github.com/jmerrifield20/educoin/internal/ledger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("educoind exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("educoind")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("ledger.proof", service.DefaultProof)
	viper.SetDefault("ledger.strict", false)
	viper.SetDefault("database.url", "")
	viper.SetDefault("auth.teacher_secret_hash", "")
	viper.SetDefault("auth.signing_key", "")
	viper.SetDefault("auth.token_ttl_seconds", 28800)
	viper.SetDefault("feed.buffer", feed.DefaultBuffer)

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Ledger ───────────────────────────────────────────────────────────────
	engine := ledger.New()
	svc := service.NewClassroomService(engine, logger)
	svc.SetProof(viper.GetInt64("ledger.proof"))
	svc.SetStrict(viper.GetBool("ledger.strict"))
	genesis := engine.LastBlock()
	logger.Info("classroom ledger initialised",
		zap.String("genesis_hash", genesis.Hash),
		zap.Int64("proof", viper.GetInt64("ledger.proof")),
		zap.Bool("strict", viper.GetBool("ledger.strict")),
	)
	handler.SetChainLength(engine.Len())

	// ── Archive ──────────────────────────────────────────────────────────────
	var arc archive.Archive
	if dbURL := viper.GetString("database.url"); dbURL != "" {
		db, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		pg := archive.NewPostgres(db, uuid.New(), logger)
		logger.Info("archiving blocks to postgres", zap.String("session", pg.Session().String()))
		arc = pg
	} else {
		arc = archive.NewMemory()
		logger.Info("archive: in-memory (set database.url to mirror blocks to postgres)")
	}
	if err := arc.Append(ctx, genesis); err != nil {
		return fmt.Errorf("archive genesis block: %w", err)
	}

	// ── Live feed ────────────────────────────────────────────────────────────
	hub := feed.NewHub(viper.GetInt("feed.buffer"), logger)
	hub.SetCountFunc(handler.SetFeedSubscribers)

	// Observers run in seal order.
	svc.Observe(func(ctx context.Context, b *ledger.Block) {
		if err := arc.Append(ctx, b); err != nil {
			logger.Error("archive append failed", zap.Int("index", b.Index), zap.Error(err))
		}
	})
	svc.Observe(func(_ context.Context, b *ledger.Block) { hub.Publish(b) })
	svc.Observe(func(_ context.Context, b *ledger.Block) { handler.RecordSeal(b) })

	// ── Teacher auth ─────────────────────────────────────────────────────────
	var tokens *auth.TokenIssuer
	if hash := viper.GetString("auth.teacher_secret_hash"); hash != "" {
		key := []byte(viper.GetString("auth.signing_key"))
		if len(key) == 0 {
			key = make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("generate signing key: %w", err)
			}
			logger.Warn("auth.signing_key not set; tokens will not survive a restart")
		}
		ttl := time.Duration(viper.GetInt("auth.token_ttl_seconds")) * time.Second
		tokens = auth.NewTokenIssuer(key, hash, "educoind", ttl)
		logger.Info("teacher auth enabled", zap.Duration("token_ttl", tokens.TTL()))
	} else {
		logger.Warn("teacher auth disabled; anyone can issue rewards (set auth.teacher_secret_hash)")
	}

	ledgerHandler := handler.NewLedgerHandler(svc, logger)
	ledgerHandler.SetFeed(hub)
	classroomHandler := handler.NewClassroomHandler(svc, tokens, logger)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (64 KB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 64<<10)
		c.Next()
	})

	if rps := viper.GetInt("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(ctx, rps, rps*2))
	}

	router.Use(requestLogger(logger))
	router.Use(handler.PrometheusMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		st := svc.Status()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "length": st.Length, "valid": st.Valid})
	})
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	ledgerHandler.Register(v1)
	classroomHandler.Register(v1)
	if tokens != nil {
		handler.NewAuthHandler(tokens, logger).Register(v1)
	}

	httpPort := viper.GetInt("server.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("educoind HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutting down educoind...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	if err := arc.Verify(shutdownCtx); err != nil {
		logger.Warn("archive integrity check FAILED", zap.Error(err))
	} else {
		n, _ := arc.Len(shutdownCtx)
		root, _ := arc.Root(shutdownCtx)
		logger.Info("archive verified", zap.Int("blocks", n), zap.String("root", root))
	}

	logger.Info("educoind stopped", zap.Int("blocks", engine.Len()), zap.Bool("chain_valid", engine.IsChainValid()))
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger logs each request with zap and tags it with an X-Request-ID.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
		logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
