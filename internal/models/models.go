package models

import (
	"fmt"
	"strings"
	"time"
)

// Identity представляет зарегистрированную конечную точку чата.
// Login формируется как name@hostname и неизменяем после регистрации.
type Identity struct {
	ID           string    `json:"id"`            // UUID идентичности
	Name         string    `json:"name"`          // уникальное имя (alphanumeric)
	Hostname     string    `json:"hostname"`      // hostname (alphanumeric)
	PasswordHash string    `json:"-"`             // bcrypt хеш пароля
	UserPubKey   string    `json:"u_pub_k"`       // PEM публичного ключа клиента (приватная половина никогда не покидает клиента)
	CustodyPub   string    `json:"s_pub_k"`       // PEM публичного custody-ключа, сгенерирован сервером при регистрации
	CustodyPriv  string    `json:"-"`             // PEM приватного custody-ключа, запечатан server-wide passphrase
	CreatedAt    time.Time `json:"created_at"`
}

// Login возвращает адрес идентичности в формате name@hostname.
func (i *Identity) Login() string {
	return FormatLogin(i.Name, i.Hostname)
}

// FormatLogin собирает login из имени и hostname.
func FormatLogin(name, hostname string) string {
	return fmt.Sprintf("%s@%s", name, hostname)
}

// ParseLogin разбирает login вида name@hostname.
// Возвращает ошибку, если формат не соблюден.
func ParseLogin(login string) (name, hostname string, err error) {
	parts := strings.Split(login, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid login %q: want name@hostname", login)
	}
	return parts[0], parts[1], nil
}

// Chat представляет двусторонний канал с общим симметричным ключом.
// Key хранится в том виде, в котором сервер получил его при создании
// (см. DESIGN.md о custody-слабости); наружу ключ отдается только
// переупакованным под личный публичный ключ участника.
type Chat struct {
	ID        int64     `json:"cid"`
	InitID    string    `json:"init_id"`    // идентичность инициатора
	InitLogin string    `json:"init_login"` // login инициатора на момент создания
	PeerID    string    `json:"peer_id"`
	PeerLogin string    `json:"dst_login"`
	Key       string    `json:"-"` // симметричный ключ (base64)
	CreatedAt time.Time `json:"created_at"`
}

// Other возвращает id собеседника для данного участника чата.
func (c *Chat) Other(identityID string) string {
	if c.InitID == identityID {
		return c.PeerID
	}
	return c.InitID
}

// Message — один переданный через relay payload. Сервер не интерпретирует
// содержимое: Payload для него непрозрачный шифртекст.
type Message struct {
	ID        int64   `json:"id"`
	ChatID    int64   `json:"chat_id"`
	AuthorID  string  `json:"author_id"`
	Payload   string  `json:"msg"`
	Timestamp float64 `json:"timestamp"` // клиентское время, монотонность не гарантируется
	Read      bool    `json:"read"`      // false -> true ровно один раз, при доставке собеседнику
}
