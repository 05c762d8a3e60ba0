// Package keystore хранит локальное состояние клиента: сессию, пару ключей
// идентичности и развернутые ключи чатов.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketSession  = []byte("session")
	bucketKeys     = []byte("keys")
	bucketChatKeys = []byte("chatkeys")

	sessionKey = []byte("current")
)

var (
	// ErrSessionNotFound возвращается, когда сохраненной сессии нет
	ErrSessionNotFound = errors.New("session not found")
	// ErrKeysNotFound возвращается, когда пары ключей для login нет
	ErrKeysNotFound = errors.New("identity keys not found")
	// ErrChatKeyNotFound возвращается, когда ключ чата не сохранен
	ErrChatKeyNotFound = errors.New("chat key not found")
)

// Session — состояние аутентифицированного клиента
type Session struct {
	ServerURL string `json:"server_url"`
	UID       string `json:"uid"`
	Login     string `json:"login"`
	Token     string `json:"token"`
}

// IdentityKeys — клиентская пара ключей идентичности. Приватная половина
// хранится запечатанной passphrase'ом и никогда не покидает клиента.
type IdentityKeys struct {
	Login      string `json:"login"`
	PublicPEM  string `json:"public_pem"`
	PrivatePEM string `json:"private_pem"`
	CustodyPub string `json:"custody_pub"` // custody-ключ сервера для этой идентичности
}

// Keystore represents BoltDB storage implementation for client state
type Keystore struct {
	db *bbolt.DB
}

// Open открывает keystore по указанному пути
func Open(dbPath string) (*Keystore, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	ks := &Keystore{db: db}
	if err := ks.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return ks, nil
}

// Close closes the database connection
func (k *Keystore) Close() error {
	if k.db == nil {
		return nil
	}
	return k.db.Close()
}

func (k *Keystore) initBuckets() error {
	return k.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketKeys, bucketChatKeys} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// SaveSession сохраняет текущую сессию
func (k *Keystore) SaveSession(session *Session) error {
	return k.putJSON(bucketSession, sessionKey, session)
}

// GetSession возвращает сохраненную сессию
func (k *Keystore) GetSession() (*Session, error) {
	session := &Session{}
	if err := k.getJSON(bucketSession, sessionKey, session, ErrSessionNotFound); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession удаляет сессию (logout)
func (k *Keystore) DeleteSession() error {
	return k.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket.Get(sessionKey) == nil {
			return ErrSessionNotFound
		}
		return bucket.Delete(sessionKey)
	})
}

// SaveKeys сохраняет пару ключей идентичности
func (k *Keystore) SaveKeys(keys *IdentityKeys) error {
	return k.putJSON(bucketKeys, []byte(keys.Login), keys)
}

// GetKeys возвращает пару ключей для login
func (k *Keystore) GetKeys(login string) (*IdentityKeys, error) {
	keys := &IdentityKeys{}
	if err := k.getJSON(bucketKeys, []byte(login), keys, ErrKeysNotFound); err != nil {
		return nil, err
	}
	return keys, nil
}

// SaveChatKey сохраняет развернутый симметричный ключ чата
func (k *Keystore) SaveChatKey(cid, key string) error {
	return k.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChatKeys).Put([]byte(cid), []byte(key))
	})
}

// GetChatKey возвращает ключ чата по cid
func (k *Keystore) GetChatKey(cid string) (string, error) {
	var key string
	err := k.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChatKeys).Get([]byte(cid))
		if data == nil {
			return ErrChatKeyNotFound
		}
		key = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (k *Keystore) putJSON(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	return k.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
}

func (k *Keystore) getJSON(bucket, key []byte, v any, notFound error) error {
	return k.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get(key)
		if data == nil {
			return notFound
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal: %w", err)
		}
		return nil
	})
}
