package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/imsight/visitlog/internal/db"
	"github.com/imsight/visitlog/internal/enrich"
	"github.com/imsight/visitlog/internal/locationcache"
	"github.com/imsight/visitlog/internal/property"
	"github.com/imsight/visitlog/internal/resilience"
	"github.com/imsight/visitlog/pkg/kakao"
)

// env bundles the stores and clients a command needs. Sqlite mode carries
// the location cache only; commands touching properties require postgres.
type env struct {
	pool  *pgxpool.Pool
	cache locationcache.Store
	props property.Store
}

func (e *env) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
	if e.props != nil {
		_ = e.props.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
}

// initCacheEnv opens the location cache on whichever driver is configured.
func initCacheEnv(ctx context.Context) (*env, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
		if err != nil {
			return nil, err
		}
		return &env{pool: pool, cache: locationcache.NewPostgres(pool)}, nil
	case "sqlite":
		cache, err := locationcache.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &env{cache: cache}, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initFullEnv opens both stores. Property storage is postgres-only.
func initFullEnv(ctx context.Context) (*env, error) {
	if cfg.Store.Driver != "postgres" {
		return nil, eris.Errorf("store driver %q does not support property storage, use postgres", cfg.Store.Driver)
	}
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	if err != nil {
		return nil, err
	}
	return &env{
		pool:  pool,
		cache: locationcache.NewPostgres(pool),
		props: property.NewPostgres(pool),
	}, nil
}

func newKakaoClient() kakao.Client {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Kakao.MaxAttempts
	retry.OnRetry = resilience.RetryLogger("kakao", "search_category")

	return kakao.NewClient(cfg.Kakao.Key,
		kakao.WithBaseURL(cfg.Kakao.BaseURL),
		kakao.WithRateLimit(cfg.Kakao.RatePerSec, cfg.Kakao.RateBurst),
		kakao.WithAcquireTimeout(time.Duration(cfg.Kakao.AcquireTimeoutSecs)*time.Second),
		kakao.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Kakao.ResponseTimeoutSecs) * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: time.Duration(cfg.Kakao.ConnectTimeoutSecs) * time.Second,
				}).DialContext,
			},
		}),
		kakao.WithRetryConfig(retry),
	)
}

func enrichOptions() enrich.Options {
	return enrich.Options{
		CacheTTL:            time.Duration(cfg.Enrich.CacheTTLDays) * 24 * time.Hour,
		TransitRadiusMeters: cfg.Enrich.TransitRadiusMeters,
		AmenityRadiusMeters: cfg.Enrich.AmenityRadiusMeters,
	}
}
