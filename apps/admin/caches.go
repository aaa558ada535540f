package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) listCaches() error {
	ctx := context.Background()
	names, err := cli.cacheStore.Namespaces(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no cache namespaces")
		return nil
	}
	for _, name := range names {
		keys, err := cli.cacheStore.Keys(ctx, name)
		if err != nil {
			return err
		}
		marker := ""
		if cli.registry.IsCurrent(name) {
			marker = "  (current)"
		} else if cli.registry.Owns(name) {
			marker = "  (stale)"
		}
		fmt.Printf("%s  %d entries%s\n", name, len(keys), marker)
	}
	return nil
}

func (cli *commandLine) evictCache(name string) error {
	if err := cli.cacheStore.Drop(context.Background(), name); err != nil {
		return err
	}
	fmt.Printf("evicted %s\n", name)
	return nil
}
