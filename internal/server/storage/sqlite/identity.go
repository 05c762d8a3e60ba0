package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/internal/server/storage"
)

// CreateIdentity persists a new identity with its custody key pair
func (s *Storage) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO identities (id, name, hostname, password_hash, user_pub_key, custody_pub_key, custody_priv_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		identity.ID,
		identity.Name,
		identity.Hostname,
		identity.PasswordHash,
		identity.UserPubKey,
		identity.CustodyPub,
		identity.CustodyPriv,
		identity.CreatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: identities.name") {
			return storage.ErrIdentityExists
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	return nil
}

// FindByLogin resolves name@hostname to exactly one identity
func (s *Storage) FindByLogin(ctx context.Context, name, hostname string) (*models.Identity, error) {
	query := selectIdentity + ` WHERE name = ? AND hostname = ?`

	identity, err := s.scanIdentity(s.db.QueryRowContext(ctx, query, name, hostname))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	return identity, nil
}

// FindByID retrieves identity by id
func (s *Storage) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	query := selectIdentity + ` WHERE id = ?`

	identity, err := s.scanIdentity(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	return identity, nil
}

// Search returns identities matching the name/hostname prefixes
func (s *Storage) Search(ctx context.Context, namePrefix, hostnamePrefix string) ([]models.Identity, error) {
	query := selectIdentity + ` WHERE name LIKE ? AND hostname LIKE ? ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, namePrefix+"%", hostnamePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search identities: %w", err)
	}
	defer rows.Close()

	var identities []models.Identity
	for rows.Next() {
		identity, err := s.scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, *identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate identities: %w", err)
	}

	return identities, nil
}

const selectIdentity = `
	SELECT id, name, hostname, password_hash, user_pub_key, custody_pub_key, custody_priv_key, created_at
	FROM identities`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanIdentity(row rowScanner) (*models.Identity, error) {
	identity := &models.Identity{}
	err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Hostname,
		&identity.PasswordHash,
		&identity.UserPubKey,
		&identity.CustodyPub,
		&identity.CustodyPriv,
		&identity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return identity, nil
}
