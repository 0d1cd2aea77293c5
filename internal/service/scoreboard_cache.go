package service

import (
	"context"
	"encoding/json"
	"time"

	"scrap_ctf/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	scoreboardCacheKey = "scoreboard:v1"
	scoreboardCacheTTL = 30 * time.Second
)

// ScoreboardCache 排行榜快照缓存，失效后由下一次查询重建
type ScoreboardCache interface {
	Get(ctx context.Context) (*Scoreboard, bool)
	Set(ctx context.Context, board *Scoreboard)
	Invalidate(ctx context.Context)
}

type RedisScoreboardCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisScoreboardCache(client *redis.Client) *RedisScoreboardCache {
	return &RedisScoreboardCache{Client: client, TTL: scoreboardCacheTTL}
}

func (c *RedisScoreboardCache) Get(ctx context.Context) (*Scoreboard, bool) {
	data, err := c.Client.Get(ctx, scoreboardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Scoreboard cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var board Scoreboard
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, false
	}
	return &board, true
}

func (c *RedisScoreboardCache) Set(ctx context.Context, board *Scoreboard) {
	data, err := json.Marshal(board)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, scoreboardCacheKey, data, c.TTL).Err(); err != nil {
		logger.Log.Warn("Scoreboard cache write failed", zap.Error(err))
	}
}

func (c *RedisScoreboardCache) Invalidate(ctx context.Context) {
	if err := c.Client.Del(ctx, scoreboardCacheKey).Err(); err != nil {
		logger.Log.Warn("Scoreboard cache invalidation failed", zap.Error(err))
	}
}

// NopScoreboardCache is used when redis is disabled.
type NopScoreboardCache struct{}

func (NopScoreboardCache) Get(context.Context) (*Scoreboard, bool) { return nil, false }
func (NopScoreboardCache) Set(context.Context, *Scoreboard)        {}
func (NopScoreboardCache) Invalidate(context.Context)              {}
