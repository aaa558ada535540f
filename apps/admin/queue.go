package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) listQueue() error {
	ctx := context.Background()
	items, err := cli.outboxSvc.Items(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("queue is empty")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%s  %s  %s  queued %s\n", item.ID, item.Resource, item.Endpoint, item.EnqueuedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("%d item(s) pending\n", len(items))
	return nil
}

func (cli *commandLine) flushQueue() error {
	n, err := cli.outboxSvc.Flush(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("flushed %d item(s)\n", n)
	return nil
}
