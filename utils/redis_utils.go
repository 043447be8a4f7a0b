package utils

import (
	"context"
	"fmt"

	"github.com/Luismorlan/postwall/app_config"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// GetRedisClient connects to the redis instance in config and pings it once.
func GetRedisClient(ctx context.Context, cfg *app_config.AppConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPasswd,
		DB:       0, // use default DB
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "fail to ping redis")
	}
	return client, nil
}
