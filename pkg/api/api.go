// Package api описывает wire-формат REST и relay протоколов.
// Имена полей воспроизводятся byte-for-byte ради совместимости клиентов.
package api

// RegisterRequest представляет запрос на регистрацию идентичности
type RegisterRequest struct {
	Username string `json:"username"`
	Hostname string `json:"hostname"`
	Password string `json:"password"`
	UserPubK string `json:"u_pub_k"` // PEM публичного ключа клиента
}

// RegisterResponse представляет ответ на успешную регистрацию
type RegisterResponse struct {
	Status  string `json:"status"`
	UID     string `json:"uid"`
	SrvPubK string `json:"s_pub_k"` // PEM custody-ключа для заворачивания chat key
	Login   string `json:"login"`
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Username string `json:"username"`
	Hostname string `json:"hostname"`
	Password string `json:"password"`
}

// LoginResponse представляет ответ на аутентификацию.
// Сам bearer token передается в заголовке Auth.
type LoginResponse struct {
	Status  string `json:"status"`
	UID     string `json:"uid"`
	SrvPubK string `json:"s_pub_k"`
}

// SearchResponse представляет результат поиска идентичностей
type SearchResponse struct {
	Status string   `json:"status"`
	Users  []string `json:"users"` // логины name@hostname
}

// NewChatRequest представляет запрос на создание чата
type NewChatRequest struct {
	DestUsername string `json:"dest_username"`
	DestHostname string `json:"dest_hostname"`
	EncAES       string `json:"enc_aes"` // chat key, завернутый под custody-ключ инициатора
}

// NewChatResponse представляет ответ на создание чата
type NewChatResponse struct {
	Status string `json:"status"`
	CID    string `json:"cid"`
}

// ChatEntry — один чат в ответе списка. AES переупакован под личный
// публичный ключ вызывающего.
type ChatEntry struct {
	AES       string `json:"aes"`
	InitLogin string `json:"init_login"`
	DstLogin  string `json:"dst_login"`
	CID       string `json:"cid"`
}

// ListChatsResponse представляет ответ списка чатов
type ListChatsResponse struct {
	Status string      `json:"status"`
	Chats  []ChatEntry `json:"chats"`
}

// StatusResponse представляет ответ /status
type StatusResponse struct {
	App    string  `json:"app"`
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
	User   string  `json:"user,omitempty"` // login, если запрос пришел с валидным токеном
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// Relay-фреймы. Соединение начинается ровно с одного AuthFrame; дальше
// клиент шлет OutboundFrame, сервер отвечает DeliveryFrame/ErrorFrame.

// AuthFrame — первый фрейм relay-соединения
type AuthFrame struct {
	Token     string `json:"token"`
	DestLogin string `json:"dest_login"`
}

// AuthOKFrame подтверждает привязку соединения к чату
type AuthOKFrame struct {
	Status string `json:"status"`
	Login  string `json:"login"`
}

// OutboundFrame — сообщение от клиента. Поля указателями: отсутствие
// msg или timestamp — ошибка протокола, а не нулевые значения.
type OutboundFrame struct {
	Msg       *string  `json:"msg"`
	Timestamp *float64 `json:"timestamp"`
}

// DeliveryFrame — сообщение собеседника, доставляемое клиенту
type DeliveryFrame struct {
	Msg       string  `json:"msg"`
	AuthorID  string  `json:"author_id"`
	Timestamp float64 `json:"timestamp"`
}

// ErrorFrame — ошибка поверх relay-соединения
type ErrorFrame struct {
	Error string `json:"error"`
}
