package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/chatrelay/internal/client/keystore"
)

func (c *Cli) runStatus(ctx context.Context) error {
	// Токен на /status опционален: показываем состояние сервера и без сессии
	if session, err := c.store.GetSession(); err == nil {
		c.client.SetToken(session.Token)
	} else if !errors.Is(err, keystore.ErrSessionNotFound) {
		return err
	}

	resp, err := c.client.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("App:    %s\n", resp.App)
	fmt.Printf("Status: %s\n", resp.Status)
	fmt.Printf("Uptime: %.0fs\n", resp.Uptime)
	if resp.User != "" {
		fmt.Printf("User:   %s\n", resp.User)
	}
	return nil
}
