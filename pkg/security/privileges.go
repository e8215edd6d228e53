package security

import (
	"os"
	"os/user"
)

// GetCurrentUser возвращает имя текущего пользователя ОС.
// Используется как пользователь по умолчанию в журнале аудита.
func GetCurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return "unknown"
}
