package validation

import (
	"fmt"
	"regexp"
)

// alnumPattern — допустимый формат для name и hostname: только латинские
// буквы и цифры, без разделителей (иначе login name@hostname неоднозначен).
var alnumPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
)

// ValidateName проверяет имя идентичности: непустое, alphanumeric.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !alnumPattern.MatchString(name) {
		return fmt.Errorf("name can only contain letters (a-z, A-Z) and digits (0-9)")
	}
	return nil
}

// ValidateHostname проверяет hostname: непустой, alphanumeric.
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname cannot be empty")
	}
	if !alnumPattern.MatchString(hostname) {
		return fmt.Errorf("hostname can only contain letters (a-z, A-Z) and digits (0-9)")
	}
	return nil
}

// ValidatePassword проверяет минимальную длину пароля.
// Проверка выполняется до хеширования и до любой записи в хранилище.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	return nil
}
