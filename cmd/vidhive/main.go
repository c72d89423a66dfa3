// Command vidhive runs the media-sharing API server: stateless JWT
// authentication, member and video management, and media storage on
// MinIO or local disk.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/api"
	"github.com/vidhive/vidhive-server/pkg/auth"
	minioclient "github.com/vidhive/vidhive-server/pkg/clients/minio"
	"github.com/vidhive/vidhive-server/pkg/clients/postgres"
	redisclient "github.com/vidhive/vidhive-server/pkg/clients/redis"
	"github.com/vidhive/vidhive-server/pkg/config"
	"github.com/vidhive/vidhive-server/pkg/lifecycle"
	"github.com/vidhive/vidhive-server/pkg/media"
	"github.com/vidhive/vidhive-server/pkg/ratelimit"
	"github.com/vidhive/vidhive-server/pkg/service"
	"github.com/vidhive/vidhive-server/pkg/store"
)

const version = "1.0.0"

// storageConfig selects and configures the media storage backend.
type storageConfig struct {
	// Backend is "minio" or "disk".
	Backend string `env:"BACKEND" envDefault:"minio" yaml:"backend"`

	// Dir is the base directory of the disk backend.
	Dir string `env:"DIR" envDefault:"/var/lib/vidhive/media" yaml:"dir"`

	Minio minioclient.Config `env:"MINIO" yaml:"minio"`
}

// serverConfig is the full process configuration, loaded from struct
// defaults, an optional config file, and VIDHIVE_* env vars.
type serverConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080" yaml:"addr"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s" yaml:"shutdown_timeout"`

	// LoginLimiter is "redis" or "memory".
	LoginLimiter string `env:"LOGIN_LIMITER" envDefault:"memory" yaml:"login_limiter"`

	Auth       auth.CodecConfig   `env:"AUTH" yaml:"auth"`
	DB         postgres.Config    `env:"DB" yaml:"db"`
	Storage    storageConfig      `env:"STORAGE" yaml:"storage"`
	Redis      redisclient.Config `env:"REDIS" yaml:"redis"`
	LoginLimit ratelimit.Config   `env:"LOGIN_LIMIT" yaml:"login_limit"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Auth:    auth.DefaultCodecConfig(),
		DB:      *postgres.DefaultConfig(),
		Storage: storageConfig{Minio: *minioclient.DefaultConfig()},
		Redis:   *redisclient.DefaultConfig(),
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path of an optional YAML/JSON config file")
	flag.Parse()

	cfg := defaultServerConfig()
	loader := config.New().WithEnvPrefix("VIDHIVE")
	if configPath != "" {
		loader = loader.WithFile(configPath)
	}
	if err := loader.Load(&cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := auth.NewCodec(cfg.Auth)
	if err != nil {
		return err
	}

	db, err := postgres.NewClient(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	members := store.NewMemberStore(db)
	videos := store.NewVideoStore(db)
	ownership := store.NewOwnership(videos)

	mediaStore, bucketClient, err := buildMediaStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	limiter, redisDB, err := buildLoginLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	if redisDB != nil {
		defer redisDB.Close()
	}

	sessions := auth.NewSessionService(codec, members, hasher,
		auth.WithLoginRateLimiter(limiter))
	memberSvc := service.NewMemberService(members, mediaStore, hasher)
	videoSvc := service.NewVideoService(videos, members, mediaStore)

	apiHandler, err := api.New(sessions, memberSvc, videoSvc, codec, ownership).Handler()
	if err != nil {
		return err
	}

	deps := []lifecycle.Option{
		lifecycle.WithDependency(lifecycle.Dependency{Name: "postgres", Check: db.Health}),
	}
	if bucketClient != nil {
		deps = append(deps, lifecycle.WithDependency(
			lifecycle.Dependency{Name: "minio", Check: bucketClient.Health}))
	}
	if redisDB != nil {
		deps = append(deps, lifecycle.WithDependency(
			lifecycle.Dependency{Name: "redis", Check: redisDB.Health}))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runtime := lifecycle.NewRuntime("vidhive-server", version, append(deps,
		lifecycle.WithOnStart(func(ctx context.Context) error {
			if err := db.Health(ctx); err != nil {
				return err
			}
			if bucketClient != nil {
				if err := bucketClient.EnsureBucket(ctx, cfg.Storage.Minio.Bucket); err != nil {
					return err
				}
			}
			return nil
		}),
		lifecycle.WithOnStop(func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		}),
	)...)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.HandleFunc("GET /healthz", healthHandler(runtime))
	srv.Handler = mux

	if err := runtime.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Addr, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErr:
		_ = runtime.SetState(lifecycle.StateFailed)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return runtime.Stop(shutdownCtx)
}

// buildMediaStore returns the configured media store and, for the
// minio backend, the client whose bucket the start hook provisions.
func buildMediaStore(ctx context.Context, cfg storageConfig) (media.Store, *minioclient.Client, error) {
	switch cfg.Backend {
	case "disk":
		ds, err := media.NewDiskStore(cfg.Dir, media.DefaultConfig())
		if err != nil {
			return nil, nil, err
		}
		return ds, nil, nil
	case "minio":
		mc, err := minioclient.NewClient(ctx, cfg.Minio)
		if err != nil {
			return nil, nil, err
		}
		return media.NewObjectStore(mc, media.DefaultConfig()), mc, nil
	default:
		return nil, nil, vherr.Newf(vherr.CodeInternalConfiguration,
			"unknown storage backend %q", cfg.Backend)
	}
}

func buildLoginLimiter(ctx context.Context, cfg serverConfig) (ratelimit.Limiter, *redisclient.Client, error) {
	switch cfg.LoginLimiter {
	case "redis":
		rdb, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return ratelimit.NewRedisLimiter(rdb, cfg.LoginLimit), rdb, nil
	case "memory":
		return ratelimit.NewMemoryLimiter(cfg.LoginLimit), nil, nil
	default:
		return nil, nil, vherr.Newf(vherr.CodeInternalConfiguration,
			"unknown login limiter %q", cfg.LoginLimiter)
	}
}

func healthHandler(runtime *lifecycle.Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := runtime.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","error":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "healthy",
			"info":   runtime.Info(),
		})
	}
}
