package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrBadCredentials неизвестный оператор или неверный ключ
var ErrBadCredentials = errors.New("неверный оператор или ключ")

// OperatorRegistry операторы, которым разрешено редактирование.
// Ключи хранятся только в виде bcrypt-хешей.
type OperatorRegistry struct {
	mu     sync.RWMutex
	hashes map[string]string // key = lowercase(operator)
}

// NewOperatorRegistry строит реестр из конфигурации оператор -> ключ.
// Ключ может быть задан открытым текстом или bcrypt-хешем.
func NewOperatorRegistry(keys map[string]string) (*OperatorRegistry, error) {
	r := &OperatorRegistry{hashes: make(map[string]string, len(keys))}
	for op, key := range keys {
		if err := r.Add(op, key); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add регистрирует оператора
func (r *OperatorRegistry) Add(operator, key string) error {
	if operator == "" || key == "" {
		return errors.New("оператор и ключ не могут быть пустыми")
	}
	hash := key
	if !isBcryptHash(key) {
		var err error
		if hash, err = HashKey(key); err != nil {
			return fmt.Errorf("ошибка хеширования ключа %s: %w", operator, err)
		}
	}
	r.mu.Lock()
	r.hashes[normalize(operator)] = hash
	r.mu.Unlock()
	return nil
}

// Authenticate проверяет ключ и возвращает каноническое имя оператора
func (r *OperatorRegistry) Authenticate(operator, key string) (string, error) {
	name := normalize(operator)
	r.mu.RLock()
	hash, ok := r.hashes[name]
	r.mu.RUnlock()
	if !ok || !CheckKey(hash, key) {
		return "", ErrBadCredentials
	}
	return name, nil
}

// Operators список зарегистрированных операторов
func (r *OperatorRegistry) Operators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.hashes))
	for op := range r.hashes {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// Helper to normalise operator names.
func normalize(operator string) string {
	return strings.ToLower(strings.TrimSpace(operator))
}
