package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"github.com/Luismorlan/postwall/app_config"
	"github.com/Luismorlan/postwall/collector"
	collector_builder "github.com/Luismorlan/postwall/collector/builder"
	"github.com/Luismorlan/postwall/panoptic"
	"github.com/Luismorlan/postwall/panoptic/modules"
	"github.com/Luismorlan/postwall/publisher"
	"github.com/Luismorlan/postwall/server"
	"github.com/Luismorlan/postwall/store"
	. "github.com/Luismorlan/postwall/utils"
	"github.com/Luismorlan/postwall/utils/dotenv"
	. "github.com/Luismorlan/postwall/utils/flag"
	. "github.com/Luismorlan/postwall/utils/log"
)

func init() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
}

func cleanup() {
	CloseProfiler()
	CloseTracer()
	Log.Info("api server shutdown")
}

func NewDogStatsdClient(cfg *app_config.AppConfig) modules.MetricsClient {
	if cfg.StatsdAddr == "" {
		return &statsd.NoOpClient{}
	}
	client, err := statsd.New(cfg.StatsdAddr)
	if err != nil {
		Log.WithError(err).Warn("fail to create statsd client, metrics are disabled")
		return &statsd.NoOpClient{}
	}
	return client
}

func NewNotifier(cfg *app_config.AppConfig) modules.Notifier {
	if cfg.SlackWebhookUrl == "" {
		return nil
	}
	return modules.NewSlackNotifier(cfg.SlackWebhookUrl)
}

// probeProvider only logs, the pipeline tolerates an unreachable upstream.
func probeProvider(ctx context.Context, provider collector.Provider) {
	pinger, ok := provider.(collector.Pinger)
	if !ok {
		return
	}
	if err := pinger.Ping(ctx); err != nil {
		Log.WithError(err).Warnf("provider %s is not reachable", provider.Name())
		return
	}
	Log.Infof("provider %s is reachable", provider.Name())
}

func main() {
	ParseFlags()
	InitLogger()
	defer cleanup()

	cfg, err := app_config.Load()
	if err != nil {
		Log.Fatalln("fail to load config: ", err)
	}

	StartTracer(*ServiceName)
	StartProfiler(*ServiceName)

	db, err := GetDBConnection(cfg)
	if err != nil {
		Log.Fatalln("fail to connect database: ", err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		Log.Fatalln("fail to migrate database: ", err)
	}
	s := store.New(db, cfg.StoreTimeout)

	ctx, cancel := context.WithCancel(context.Background())

	builder := collector_builder.CollectorBuilder{}
	provider := builder.BuildProvider(cfg, builder.BuildUserCache(ctx, cfg))
	Log.Infof("using provider %s", provider.Name())
	probeProvider(ctx, provider)

	processor := publisher.NewPostPublisherProcessor(s, provider, cfg.PageSize, cfg.ProviderTimeout)

	eventbus := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)

	scheduler := modules.NewScheduler(
		modules.SchedulerConfig{
			Name:                "scheduler",
			Interval:            cfg.RefreshInterval,
			RunTimeout:          cfg.RunTimeout,
			ShutdownGracePeriod: cfg.ShutdownGracePeriod,
			RunOnStartup:        true,
		},
		processor,
		eventbus,
	)
	engine := panoptic.NewEngine([]panoptic.Module{
		// Reporter sends run metrics to datadog and failed runs to slack.
		modules.NewReporter(modules.ReporterConfig{Name: "reporter"}, NewDogStatsdClient(cfg), NewNotifier(cfg), eventbus),
		// Scheduler runs the fetch-and-store pipeline on startup, on every
		// interval and on demand.
		scheduler,
	}, ctx, cancel, eventbus)
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := engine.Run(); err != nil {
			Log.Errorln("engine stopped with error: ", err)
		}
	}()

	if dotenv.IsProdEnv() {
		gin.SetMode(gin.ReleaseMode)
	}
	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()
	router.Use(cors.New(server.CorsConfig(cfg.FrontendUrl)))
	router.Use(gintrace.Middleware(*ServiceName))
	server.RegisterRoutes(router, server.NewService(s, processor, scheduler))

	srv := &http.Server{
		Addr:    cfg.ApiAddr(),
		Handler: router,
	}
	go func() {
		Log.Infof("api server starts up on %s", cfg.ApiAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Log.Fatalln("api server stopped: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		Log.Errorln("fail to shutdown api server: ", err)
	}
	// Stops scheduling and waits for in-flight runs up to the grace period.
	engine.Shutdown()
	<-engineDone
}
