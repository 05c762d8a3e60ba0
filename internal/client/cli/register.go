package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/chatrelay/internal/client/keystore"
	"github.com/iudanet/chatrelay/internal/crypto"
	"github.com/iudanet/chatrelay/pkg/api"
)

func (c *Cli) runRegister(ctx context.Context) error {
	fmt.Println("=== Registration ===")
	fmt.Println()

	username, err := readInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	hostname, err := readInput("Hostname: ")
	if err != nil {
		return fmt.Errorf("failed to read hostname: %w", err)
	}

	password, err := readPassword("Password (min 8 chars): ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	passphrase, err := readPassword("Key passphrase (protects your private key): ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}

	fmt.Println()
	fmt.Println("Generating identity key pair...")

	pubPEM, privPEM, err := crypto.GenerateKeyPair(passphrase)
	if err != nil {
		return fmt.Errorf("failed to generate key pair: %w", err)
	}

	resp, token, err := c.client.Register(ctx, api.RegisterRequest{
		Username: username,
		Hostname: hostname,
		Password: password,
		UserPubK: pubPEM,
	})
	if err != nil {
		return err
	}

	if err := c.store.SaveKeys(&keystore.IdentityKeys{
		Login:      resp.Login,
		PublicPEM:  pubPEM,
		PrivatePEM: privPEM,
		CustodyPub: resp.SrvPubK,
	}); err != nil {
		return fmt.Errorf("failed to save identity keys: %w", err)
	}
	if err := c.store.SaveSession(&keystore.Session{
		UID:   resp.UID,
		Login: resp.Login,
		Token: token,
	}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Println()
	fmt.Println("Registration successful!")
	fmt.Printf("Login: %s\n", resp.Login)
	fmt.Printf("UID:   %s\n", resp.UID)
	fmt.Println()
	fmt.Println("Remember your key passphrase: without it the private key")
	fmt.Println("cannot be unsealed and chat keys cannot be unwrapped.")

	return nil
}
