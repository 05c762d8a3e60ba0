package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSearch(ctx context.Context, args []string) error {
	if _, err := c.requireSession(); err != nil {
		return err
	}

	var namePrefix, hostnamePrefix string
	if len(args) > 0 {
		namePrefix = args[0]
	}
	if len(args) > 1 {
		hostnamePrefix = args[1]
	}

	resp, err := c.client.Search(ctx, namePrefix, hostnamePrefix)
	if err != nil {
		return err
	}

	if len(resp.Users) == 0 {
		fmt.Println("No identities found")
		return nil
	}
	for _, login := range resp.Users {
		fmt.Println(login)
	}
	return nil
}
