// Package credentials реализует хранилище токена доступа клиента.
//
// Хранилище содержит ровно один токен: последняя запись побеждает и
// немедленно видна последующим чтениям в рамках процесса.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store определяет контракт хранилища токена доступа.
type Store interface {
	// Get возвращает сохранённый токен и признак его наличия.
	Get() (string, bool)
	// Set сохраняет токен, затирая предыдущий.
	Set(token string) error
	// Clear удаляет токен. Повторный вызов не является ошибкой.
	Clear() error
}

// FileStore хранит токен в файле с правами 0600.
type FileStore struct {
	path string
}

// NewFileStore создаёт файловое хранилище токена по указанному пути.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath возвращает путь файла токена в домашнем каталоге пользователя.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".market", "token"), nil
}

// Get читает токен из файла. Отсутствие или нечитаемость файла
// трактуется как отсутствие токена.
func (s *FileStore) Get() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	return token, true
}

// Set записывает токен в файл, создавая каталог при необходимости.
func (s *FileStore) Set(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear удаляет файл токена.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// MemoryStore хранит токен в памяти процесса. Используется в тестах
// и для сессий без сохранения между запусками.
type MemoryStore struct {
	token string
	set   bool
}

// NewMemoryStore создаёт пустое хранилище токена в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get возвращает токен из памяти.
func (s *MemoryStore) Get() (string, bool) {
	return s.token, s.set
}

// Set сохраняет токен в памяти.
func (s *MemoryStore) Set(token string) error {
	s.token = token
	s.set = true
	return nil
}

// Clear сбрасывает токен.
func (s *MemoryStore) Clear() error {
	s.token = ""
	s.set = false
	return nil
}
