// Package session управляет состоянием клиентской сессии.
//
// Менеджер не предназначен для конкурентного использования: все операции
// выполняются на одном логическом потоке клиентского приложения.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/ecommerce-system/internal/credentials"
	"github.com/mmeshcher/ecommerce-system/internal/gateway"
	"github.com/mmeshcher/ecommerce-system/internal/model"
)

// Gateway определяет операции удалённого сервиса, используемые менеджером.
type Gateway interface {
	Authenticate(ctx context.Context, email, password string) (*model.User, string, error)
	FetchIdentity(ctx context.Context) (*model.User, error)
}

// Manager владеет текущей сессией: личностью пользователя и токеном.
// Личность устанавливается только вместе с токеном, никогда отдельно.
type Manager struct {
	gw        Gateway
	creds     credentials.Store
	user      *model.User
	token     string
	onExpired func()
}

// NewManager создаёт менеджер сессии. onExpired вызывается при
// принудительной инвалидации сессии (отклонённый сервером токен);
// допускается nil.
func NewManager(gw Gateway, creds credentials.Store, onExpired func()) *Manager {
	return &Manager{
		gw:        gw,
		creds:     creds,
		onExpired: onExpired,
	}
}

// Initialize восстанавливает сессию по сохранённому токену.
// Любая неудача трактуется как «пользователь не вошёл», а не как ошибка:
// сессия остаётся пустой, вызывающему ничего не возвращается.
func (m *Manager) Initialize(ctx context.Context) {
	token, ok := m.creds.Get()
	if !ok {
		return
	}

	user, err := m.gw.FetchIdentity(ctx)
	if err != nil {
		m.user = nil
		m.token = ""
		return
	}

	m.user = user
	m.token = token
}

// Login выполняет вход. При успехе токен сохраняется в хранилище, а
// личность и токен становятся видимыми одновременно. При неверных
// учётных данных возвращается gateway.ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, token, err := m.gw.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidCredentials) {
			return nil, gateway.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if err := m.creds.Set(token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	m.user = user
	m.token = token
	return user, nil
}

// Logout очищает хранилище токена и сессию. Идемпотентен.
func (m *Manager) Logout() {
	_ = m.creds.Clear()
	m.user = nil
	m.token = ""
}

// Invalidate выполняет принудительную инвалидацию сессии: та же очистка,
// что и при Logout, плюс сигнал «сессия истекла» подписчику.
// Вызывается шлюзом при любом отклонённом сервером токене.
func (m *Manager) Invalidate() {
	m.Logout()
	if m.onExpired != nil {
		m.onExpired()
	}
}

// Current возвращает снимок текущей сессии.
func (m *Manager) Current() model.Session {
	return model.Session{User: m.user, Token: m.token}
}
