package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/chatrelay/internal/client/keystore"
	"github.com/iudanet/chatrelay/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context) error {
	username, err := readInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	hostname, err := readInput("Hostname: ")
	if err != nil {
		return fmt.Errorf("failed to read hostname: %w", err)
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	resp, token, err := c.client.Login(ctx, api.LoginRequest{
		Username: username,
		Hostname: hostname,
		Password: password,
	})
	if err != nil {
		return err
	}

	login := username + "@" + hostname
	if err := c.store.SaveSession(&keystore.Session{
		UID:   resp.UID,
		Login: login,
		Token: token,
	}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	// Custody-ключ мог поменяться только вместе с идентичностью, но локальной
	// пары ключей может не быть, если это новая машина
	if _, err := c.store.GetKeys(login); err != nil {
		fmt.Println("Warning: no identity keys stored for this login on this machine.")
		fmt.Println("Chat keys wrapped for your public key cannot be unwrapped here.")
	}

	fmt.Printf("Logged in as %s\n", login)
	return nil
}

func (c *Cli) runLogout() error {
	if err := c.store.DeleteSession(); err != nil {
		return fmt.Errorf("failed to drop session: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}
