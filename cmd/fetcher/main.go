package main

import (
	"context"
	"os"

	"github.com/Luismorlan/postwall/app_config"
	collector_builder "github.com/Luismorlan/postwall/collector/builder"
	"github.com/Luismorlan/postwall/publisher"
	"github.com/Luismorlan/postwall/store"
	. "github.com/Luismorlan/postwall/utils"
	"github.com/Luismorlan/postwall/utils/dotenv"
	. "github.com/Luismorlan/postwall/utils/flag"
	. "github.com/Luismorlan/postwall/utils/log"
	"github.com/sirupsen/logrus"
)

// fetcher runs the pipeline once and exits, for cron style deployments.
func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	ParseFlags()
	*ServiceName = Fetcher
	InitLogger()

	cfg, err := app_config.Load()
	if err != nil {
		Log.Fatalln("fail to load config: ", err)
	}

	db, err := GetDBConnection(cfg)
	if err != nil {
		Log.Fatalln("fail to connect database: ", err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		Log.Fatalln("fail to migrate database: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	builder := collector_builder.CollectorBuilder{}
	provider := builder.BuildProvider(cfg, builder.BuildUserCache(ctx, cfg))
	processor := publisher.NewPostPublisherProcessor(store.New(db, cfg.StoreTimeout), provider, cfg.PageSize, cfg.ProviderTimeout)

	report, err := processor.Run(ctx, publisher.TriggerOneShot)
	Log.WithFields(logrus.Fields{
		"run_id":            report.RunId,
		"fetched":           report.Stats.Fetched,
		"new":               report.Stats.New,
		"duplicates":        report.Stats.Duplicates,
		"handles_processed": report.Stats.HandlesProcessed,
		"failed_handles":    report.FailedHandles,
		"duration":          report.Duration,
	}).Info("fetch completed")
	if err != nil {
		Log.Errorln("fetch failed: ", err)
		os.Exit(1)
	}
}
