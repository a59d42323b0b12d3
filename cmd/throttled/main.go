// Command throttled runs the rate limiter service: api key issuance, rate
// limit configuration and the decision endpoints over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/apikey"
	"github.com/toolink/throttle/auditlog"
	"github.com/toolink/throttle/configstore"
	"github.com/toolink/throttle/httpapi"
	"github.com/toolink/throttle/limiter"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		backend     = flag.String("backend", "memory", "storage backend: memory or redis")
		redisAddr   = flag.String("redis-addr", "localhost:6379", "redis address (backend=redis)")
		logLevel    = flag.String("log-level", "info", "zerolog level: debug, info, warn, error")
		auditMaxLen = flag.Int64("audit-max-len", 10000, "maximum retained audit records")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", *logLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		configs configstore.Store
		keys    apikey.Store
		audit   httpapi.AuditStore
	)
	switch *backend {
	case "memory":
		configs = configstore.NewMemoryStore()
		keys = apikey.NewMemoryStore()
		audit = auditlog.NewMemorySink(auditlog.WithCapacity(int(*auditMaxLen)))
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("redis_addr", *redisAddr).Msg("redis unreachable")
		}
		configs = configstore.NewRedisStore(client)
		keys = apikey.NewRedisStore(client)
		audit = auditlog.NewRedisSink(client, auditlog.WithMaxLen(*auditMaxLen))
	default:
		log.Fatal().Str("backend", *backend).Msg("unknown backend, must be 'memory' or 'redis'")
	}

	rl := limiter.NewRateLimiter(configs, audit)

	mux := http.NewServeMux()
	httpapi.NewServer(rl, configs, keys, audit).Register(mux)

	server := &http.Server{
		Addr:    *addr,
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", *addr).Str("backend", *backend).Msg("throttled listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
