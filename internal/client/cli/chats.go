package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/chatrelay/internal/crypto"
)

func (c *Cli) runChats(ctx context.Context) error {
	session, err := c.requireSession()
	if err != nil {
		return err
	}

	keys, err := c.store.GetKeys(session.Login)
	if err != nil {
		return fmt.Errorf("no identity keys for %s on this machine: %w", session.Login, err)
	}

	resp, err := c.client.ListChats(ctx)
	if err != nil {
		return err
	}
	if len(resp.Chats) == 0 {
		fmt.Println("No chats yet")
		return nil
	}

	passphrase, err := readPassword("Key passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}

	for _, entry := range resp.Chats {
		// Сервер заворачивает ключ чата под наш публичный ключ; разворачиваем
		// приватным и запоминаем локально для команды chat
		chatKey, err := crypto.DecryptOAEP(entry.AES, keys.PrivatePEM, passphrase)
		if err != nil {
			fmt.Printf("[%s] %s <-> %s (failed to unwrap key: %v)\n",
				entry.CID, entry.InitLogin, entry.DstLogin, err)
			continue
		}
		if err := c.store.SaveChatKey(entry.CID, string(chatKey)); err != nil {
			return fmt.Errorf("failed to save chat key: %w", err)
		}

		fmt.Printf("[%s] %s <-> %s\n", entry.CID, entry.InitLogin, entry.DstLogin)
	}
	return nil
}
