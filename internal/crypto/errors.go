package crypto

import "errors"

// ErrCrypto объединяет все криптографические отказы: битый ключ, неверная
// passphrase, невалидный padding. На границе протокола любой такой отказ
// отображается в Unauthorized, чтобы не давать клиенту oracle по plaintext.
var ErrCrypto = errors.New("crypto failure")
