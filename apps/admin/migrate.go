package main

import (
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	appfs "github.com/protextify/edge/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return fmt.Errorf("queue engine is %q; migrations only apply to postgres", cli.conf.Outbox.Engine)
	}
	if len(args) == 0 {
		return errors.New("missing migration command")
	}
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, "migrations", arguments...)
}
