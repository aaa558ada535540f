package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/protextify/edge/core"
	"github.com/protextify/edge/core/cache"
	"github.com/protextify/edge/core/outbox"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf       *core.Config
	db         *sql.DB // nil unless the queue engine is postgres
	cacheStore cache.Store
	registry   cache.Registry
	outboxRepo outbox.Repository
	outboxSvc  *outbox.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  queue -list|-flush                 - inspect or drain the deferred-write queue")
	fmt.Println("  caches -list|-evict NAMESPACE      - inspect cache namespaces or evict one")
	fmt.Println("  migrate COMMAND [args]             - run queue database migrations (postgres only)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	queueCmd := flag.NewFlagSet("queue", flag.ExitOnError)
	queueList := queueCmd.Bool("list", false, "List every queued deferred write.")
	queueFlush := queueCmd.Bool("flush", false, "Drop every queued deferred write without replaying.")

	cachesCmd := flag.NewFlagSet("caches", flag.ExitOnError)
	cachesList := cachesCmd.Bool("list", false, "List cache namespaces and their entry counts.")
	cachesEvict := cachesCmd.String("evict", "", "Evict the named cache namespace.")

	switch args[1] {
	case "queue":
		if err := queueCmd.Parse(args[2:]); err != nil {
			return err
		}
		switch {
		case *queueList:
			return cli.listQueue()
		case *queueFlush:
			return cli.flushQueue()
		default:
			queueCmd.Usage()
			return errHelp
		}
	case "caches":
		if err := cachesCmd.Parse(args[2:]); err != nil {
			return err
		}
		switch {
		case *cachesList:
			return cli.listCaches()
		case *cachesEvict != "":
			return cli.evictCache(*cachesEvict)
		default:
			cachesCmd.Usage()
			return errHelp
		}
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
