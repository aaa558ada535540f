package main

import (
	"log"
	"net/http"
	"os"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
	"github.com/protextify/edge/core/outbox"
	logsvc "github.com/protextify/edge/services/logger"
	"github.com/protextify/edge/storage/database"
	boltcache "github.com/protextify/edge/storage/cache/bolt"
	boltoutbox "github.com/protextify/edge/storage/outbox/bolt"
	pgoutbox "github.com/protextify/edge/storage/outbox/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up cache storage
	cacheStore, err := boltcache.Open(conf.Cache.Path)
	errAndDie(err)
	defer cacheStore.Close()

	// set up queue storage
	cli := commandLine{
		conf:       conf,
		cacheStore: cacheStore,
		registry:   cache.NewRegistry(conf.Cache.Prefix, conf.Cache.Version),
	}
	switch conf.Outbox.Engine {
	case "postgres":
		db, err := database.Open(conf)
		errAndDie(err)
		defer db.Close()
		errAndDie(db.Ping())
		cli.db = db
		cli.outboxRepo = pgoutbox.NewRepository(db)
	default:
		repo, err := boltoutbox.Open(conf.Outbox.Path)
		errAndDie(err)
		defer repo.Close()
		cli.outboxRepo = repo
	}
	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(false)
	cli.outboxSvc = outbox.NewService(cli.outboxRepo, &http.Client{}, svcLogger, conf)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
