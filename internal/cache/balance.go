// Package cache provides a redis-backed read cache for wallet balance
// queries. Balance reads hit an external RPC on every storefront poll; a
// short TTL cache absorbs that without changing the display semantics.
package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/copiblocks/shop-api/internal/starknet"
)

// Connect creates a ping-verified redis client.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return rdb, nil
}

// cachedWallet decorates a Wallet with balance caching. Address and Execute
// pass straight through; only BalanceOf is cached.
type cachedWallet struct {
	starknet.Wallet

	rdb *redis.Client
	ttl time.Duration
	lg  *zap.Logger
}

// WrapWallet returns w with BalanceOf results cached for ttl. Cache errors
// fall through to the live query.
func WrapWallet(w starknet.Wallet, rdb *redis.Client, ttl time.Duration, lg *zap.Logger) starknet.Wallet {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &cachedWallet{
		Wallet: w,
		rdb:    rdb,
		ttl:    ttl,
		lg:     lg,
	}
}

func (c *cachedWallet) BalanceOf(ctx context.Context, token string) (decimal.Decimal, error) {
	key := "balance:" + token

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if bal, perr := decimal.NewFromString(raw); perr == nil {
			return bal, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.lg.Warn("balance cache read failed", zap.Error(err))
	}

	bal, err := c.Wallet.BalanceOf(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.rdb.Set(ctx, key, bal.String(), c.ttl).Err(); err != nil {
		c.lg.Warn("balance cache write failed", zap.Error(err))
	}
	return bal, nil
}
