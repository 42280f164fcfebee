package pricefeed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Settings describes a feed to open.
type Settings struct {
	// Sources are tried in this order: "binance", "kraken", "pyth".
	Sources    []string
	Timeout    time.Duration
	BinanceURL string
	KrakenURL  string
	SolanaRPC  string
	// Redis is used as the quote cache when Addr is set, otherwise quotes
	// are cached in memory.
	Redis   RedisConfig
	Options Options
}

// NewSource builds the named source.
func NewSource(name string, s Settings) (Source, error) {
	switch name {
	case "binance":
		return NewBinanceSource(s.BinanceURL, s.Timeout), nil
	case "kraken":
		return NewKrakenSource(s.KrakenURL, s.Timeout), nil
	case "pyth":
		return NewPythSource(s.SolanaRPC), nil
	default:
		return nil, fmt.Errorf("unknown price source %q", name)
	}
}

// Open builds the sources and the cache. The returned close function
// releases the cache connection.
func Open(ctx context.Context, logger *zap.Logger, s Settings) (*Feed, func() error, error) {
	sources := make([]Source, 0, len(s.Sources))
	for _, name := range s.Sources {
		src, err := NewSource(name, s)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}

	opts := s.Options
	closeFn := func() error { return nil }
	if s.Redis.Addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := NewRedisCache(pingCtx, s.Redis)
		if err != nil {
			return nil, nil, err
		}
		opts.Cache = rc
		closeFn = rc.Close
		logger.Info("Using redis quote cache", zap.String("addr", s.Redis.Addr))
	} else if opts.Cache == nil {
		opts.Cache = NewMemoryCache()
	}

	return NewFeed(logger, opts, sources...), closeFn, nil
}
