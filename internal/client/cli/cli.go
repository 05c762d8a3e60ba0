// Package cli реализует команды терминального клиента.
package cli

import (
	"context"
	"fmt"
	"os"

	clientapi "github.com/iudanet/chatrelay/internal/client/api"
	"github.com/iudanet/chatrelay/internal/client/keystore"
)

// Cli объединяет зависимости команд клиента
type Cli struct {
	client *clientapi.Client
	store  *keystore.Keystore
}

// New создает Cli
func New(client *clientapi.Client, store *keystore.Keystore) *Cli {
	return &Cli{client: client, store: store}
}

// Run выполняет команду с аргументами
func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error
	switch command {
	case "register":
		err = c.runRegister(ctx)
	case "login":
		err = c.runLogin(ctx)
	case "logout":
		err = c.runLogout()
	case "search":
		err = c.runSearch(ctx, args)
	case "chats":
		err = c.runChats(ctx)
	case "chat":
		err = c.runChat(ctx, args)
	case "status":
		err = c.runStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// PrintUsage печатает справку по командам
func PrintUsage() {
	fmt.Println("Usage: chatrelay-client [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register              Register a new identity")
	fmt.Println("  login                 Log in with an existing identity")
	fmt.Println("  logout                Drop the stored session")
	fmt.Println("  search [name] [host]  Search identities by prefix")
	fmt.Println("  chats                 List chats and unwrap their keys")
	fmt.Println("  chat <name@host>      Open (or create) a chat and talk")
	fmt.Println("  status                Show server status")
}

// requireSession возвращает сохраненную сессию и устанавливает токен клиенту
func (c *Cli) requireSession() (*keystore.Session, error) {
	session, err := c.store.GetSession()
	if err != nil {
		return nil, fmt.Errorf("not logged in, run 'login' first: %w", err)
	}
	c.client.SetToken(session.Token)
	return session, nil
}
