package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"net/url"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoedge "github.com/protextify/edge/apps/edge/echo"
	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
	"github.com/protextify/edge/core/lifecycle"
	"github.com/protextify/edge/core/notify"
	"github.com/protextify/edge/core/outbox"
	"github.com/protextify/edge/core/routing"
	"github.com/protextify/edge/core/strategy"
	"github.com/protextify/edge/core/worker"
	logsvc "github.com/protextify/edge/services/logger"
	notifysvc "github.com/protextify/edge/services/notifier"
	boltcache "github.com/protextify/edge/storage/cache/bolt"
	inmemcache "github.com/protextify/edge/storage/cache/inmem"
	"github.com/protextify/edge/storage/database"
	boltoutbox "github.com/protextify/edge/storage/outbox/bolt"
	inmemoutbox "github.com/protextify/edge/storage/outbox/inmem"
	pgoutbox "github.com/protextify/edge/storage/outbox/postgres"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "EDGE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// per-strategy deadlines are handled by the pipeline itself
	fetch := &http.Client{}

	// set up cache storage; a broken cache file degrades to a session
	// cache rather than blocking startup
	var cacheStore cache.Store
	boltStore, err := boltcache.Open(conf.Cache.Path)
	if err != nil {
		logger.Error(fmt.Sprintf("opening cache store, degrading to in-memory: %v", err), err)
		cacheStore = inmemcache.NewStore()
	} else {
		cacheStore = boltStore
		defer func() { _ = boltStore.Close() }()
	}

	// set up queue storage
	repo, cleanup, err := setUpOutboxRepo(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening queue store, degrading to in-memory: %v", err), err)
		repo = inmemoutbox.NewRepository()
	} else if cleanup != nil {
		defer cleanup()
	}

	// set up services
	outboxSvc := outbox.NewService(repo, fetch, logger, conf)

	var channels []notify.Channel
	if conf.Debug {
		channels = append(channels, notifysvc.NewConsoleChannel(conf.AppName))
	} else {
		channels = append(channels, notifysvc.NewConsoleChannel(conf.AppName), notifysvc.NewSendgridChannel(logger, conf))
	}
	notifySvc := notify.NewService(logger, conf, channels...)

	registry := cache.NewRegistry(conf.Cache.Prefix, conf.Cache.Version)
	classifier := routing.NewClassifier(routing.DefaultRules(routing.RuleOptions{
		PrecachePaths: conf.Cache.Precache,
		APIHost:       originHost(conf.Upstream.APIOrigin),
	})...)

	navigation := &strategy.NavigationFallback{
		Store:          cacheStore,
		ShellNamespace: registry.Static(),
		ShellKey:       strategy.ShellKey(conf.Upstream.AppOrigin, conf.Cache.AppShell),
		Fetch:          fetch,
		Logger:         logger,
	}
	swr := &strategy.StaleWhileRevalidate{
		Store: cacheStore, Namespace: registry.Dynamic(), Fetch: fetch, Logger: logger,
	}
	strategies := map[routing.Class]strategy.Strategy{
		routing.StaticAsset: &strategy.CacheFirst{
			Store: cacheStore, Namespace: registry.Static(), Fetch: fetch, Logger: logger,
		},
		routing.FreshnessCriticalAPI: &strategy.NetworkFirst{
			Store: cacheStore, Namespace: registry.Dynamic(), Fetch: fetch, Logger: logger,
			Timeout: conf.Upstream.FetchTimeout,
		},
		routing.StaleTolerantAPI: swr,
		routing.Navigation:       navigation,
	}
	wrk := worker.New(classifier, strategies, swr, fetch, outboxSvc, notifySvc, logger)

	ctrl := &lifecycle.Controller{
		Registry:  registry,
		Store:     cacheStore,
		Fetch:     fetch,
		Logger:    logger,
		AppOrigin: conf.Upstream.AppOrigin,
		Precache:  conf.Cache.Precache,
		OnClaim: func() {
			logger.Info("claimed open clients: all requests now served by " + registry.Static())
		},
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	ctx := context.Background()
	if err = ctrl.Install(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("installing cache version %s: %v", registry.Static(), err), err)
	}
	if conf.Cache.SkipWaiting {
		if err = ctrl.Activate(ctx); err != nil {
			logger.Fatal(fmt.Sprintf("activating cache version %s: %v", registry.Static(), err), err)
		}
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("cacheVersion").Set(conf.Cache.Version)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Edge Service

	server := echoedge.NewServer(
		echoedge.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Worker:     wrk,
			Lifecycle:  ctrl,
			Outbox:     outboxSvc,
			Notify:     notifySvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		shutCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(shutCtx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpOutboxRepo opens the configured queue store. The returned cleanup
// closes it, when there is something to close.
func setUpOutboxRepo(conf *core.Config) (outbox.Repository, func(), error) {
	switch conf.Outbox.Engine {
	case "postgres":
		db, err := setUpDB(conf)
		if err != nil {
			return nil, nil, err
		}
		return pgoutbox.NewRepository(db), func() { _ = db.Close() }, nil
	case "inmem":
		return inmemoutbox.NewRepository(), nil, nil
	default:
		repo, err := boltoutbox.Open(conf.Outbox.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Host
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
