package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	clientapi "github.com/iudanet/chatrelay/internal/client/api"
	"github.com/iudanet/chatrelay/internal/client/keystore"
	"github.com/iudanet/chatrelay/internal/crypto"
	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/pkg/api"
)

func (c *Cli) runChat(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: chat <name@hostname>")
	}
	destLogin := args[0]
	if _, _, err := models.ParseLogin(destLogin); err != nil {
		return err
	}

	session, err := c.requireSession()
	if err != nil {
		return err
	}
	keys, err := c.store.GetKeys(session.Login)
	if err != nil {
		return fmt.Errorf("no identity keys for %s on this machine: %w", session.Login, err)
	}

	chatKey, err := c.ensureChat(ctx, session, keys, destLogin)
	if err != nil {
		return err
	}

	relay, err := c.client.DialRelay(ctx)
	if err != nil {
		return err
	}
	defer relay.Close()

	if err := relay.Authenticate(session.Token, destLogin); err != nil {
		return err
	}

	fmt.Printf("Connected to chat with %s. Type messages, Ctrl-D to quit.\n", destLogin)

	go func() {
		for {
			frame, err := relay.Next()
			if err != nil {
				if errors.Is(err, clientapi.ErrRelayClosed) {
					return
				}
				fmt.Printf("! %v\n", err)
				continue
			}

			plaintext, err := crypto.SymmetricDecrypt(frame.Msg, chatKey)
			if err != nil {
				fmt.Printf("! failed to decrypt message: %v\n", err)
				continue
			}
			fmt.Printf("[%s] %s\n", destLogin, plaintext)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		ciphertext, err := crypto.SymmetricEncrypt([]byte(line), chatKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt message: %w", err)
		}
		ts := float64(time.Now().UnixMilli()) / 1000
		if err := relay.Send(ciphertext, ts); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ensureChat возвращает симметричный ключ чата с destLogin, создавая чат
// при необходимости: свежий ключ заворачивается под наш custody-ключ и
// передается серверу.
func (c *Cli) ensureChat(ctx context.Context, session *keystore.Session, keys *keystore.IdentityKeys, destLogin string) (string, error) {
	resp, err := c.client.ListChats(ctx)
	if err != nil {
		return "", err
	}

	for _, entry := range resp.Chats {
		other := entry.DstLogin
		if other == session.Login {
			other = entry.InitLogin
		}
		if other != destLogin {
			continue
		}

		// Чат есть; ключ либо уже развернут командой chats, либо
		// разворачиваем на месте
		if key, err := c.store.GetChatKey(entry.CID); err == nil {
			return key, nil
		}

		passphrase, err := readPassword("Key passphrase: ")
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		key, err := crypto.DecryptOAEP(entry.AES, keys.PrivatePEM, passphrase)
		if err != nil {
			return "", fmt.Errorf("failed to unwrap chat key: %w", err)
		}
		if err := c.store.SaveChatKey(entry.CID, string(key)); err != nil {
			return "", fmt.Errorf("failed to save chat key: %w", err)
		}
		return string(key), nil
	}

	destName, destHostname, err := models.ParseLogin(destLogin)
	if err != nil {
		return "", err
	}

	chatKey, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate chat key: %w", err)
	}
	wrapped, err := crypto.EncryptOAEP([]byte(chatKey), keys.CustodyPub)
	if err != nil {
		return "", fmt.Errorf("failed to wrap chat key: %w", err)
	}

	created, err := c.client.NewChat(ctx, api.NewChatRequest{
		DestUsername: destName,
		DestHostname: destHostname,
		EncAES:       wrapped,
	})
	if err != nil {
		return "", err
	}
	if err := c.store.SaveChatKey(created.CID, chatKey); err != nil {
		return "", fmt.Errorf("failed to save chat key: %w", err)
	}

	fmt.Printf("Created chat %s with %s\n", created.CID, destLogin)
	return chatKey, nil
}
