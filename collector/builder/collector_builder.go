package collector_builder

import (
	"context"
	"net/http"

	"github.com/Luismorlan/postwall/app_config"
	. "github.com/Luismorlan/postwall/collector"
	"github.com/Luismorlan/postwall/collector/clients"
	. "github.com/Luismorlan/postwall/collector/instances"
	"github.com/Luismorlan/postwall/utils"
	Logger "github.com/Luismorlan/postwall/utils/log"
)

const lruUserCacheSize = 1024

type CollectorBuilder struct{}

func (CollectorBuilder) NewTwitter241Provider(cfg *app_config.AppConfig, cache UserCache) Provider {
	client := clients.NewRapidApiClient(cfg.RapidApiKey, cfg.RapidApiHost, cfg.ProviderTimeout)
	return NewTwitter241Provider(client, cache)
}

func (CollectorBuilder) NewSyntheticProvider() Provider {
	return NewSyntheticProvider()
}

func (CollectorBuilder) NewScraperProvider(cache UserCache) Provider {
	return NewScraperProvider(cache)
}

func (CollectorBuilder) NewRssProvider(cfg *app_config.AppConfig) Provider {
	client := clients.NewHttpClient(http.Header{}, []http.Cookie{}, cfg.ProviderTimeout)
	return NewRssProvider(client, cfg.RssBaseUrl)
}

// BuildProvider picks the provider selected by configuration. Live mode
// without a usable credential is a configuration mistake and resolves to the
// synthetic provider up front, with a warning. Nothing here reacts to runtime
// fetch failures.
func (b CollectorBuilder) BuildProvider(cfg *app_config.AppConfig, cache UserCache) Provider {
	switch cfg.ProviderMode {
	case app_config.ProviderModeLive:
		if !cfg.HasUsableRapidApiKey() {
			Logger.Log.Warn("PROVIDER_MODE=live but RAPIDAPI_KEY is missing or invalid, using synthetic posts")
			return b.NewSyntheticProvider()
		}
		return b.NewTwitter241Provider(cfg, cache)
	case app_config.ProviderModeScraper:
		return b.NewScraperProvider(cache)
	case app_config.ProviderModeRss:
		return b.NewRssProvider(cfg)
	default:
		return b.NewSyntheticProvider()
	}
}

// BuildUserCache shares resolved users through redis when REDIS_HOST is set,
// and keeps them in process otherwise. An unreachable redis is not fatal.
func (b CollectorBuilder) BuildUserCache(ctx context.Context, cfg *app_config.AppConfig) UserCache {
	if cfg.RedisEnabled() {
		client, err := utils.GetRedisClient(ctx, cfg)
		if err == nil {
			Logger.Log.Infof("resolved users are cached in redis %s:%s", cfg.RedisHost, cfg.RedisPort)
			return NewRedisUserCache(client, DefaultUserCacheTTL)
		}
		Logger.Log.WithError(err).Warn("redis unavailable, caching resolved users in memory")
	}
	cache, err := NewLruUserCache(lruUserCacheSize)
	if err != nil {
		// Only fails for a non positive size.
		panic(err)
	}
	return cache
}
