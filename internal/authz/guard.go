// Package authz содержит чистую функцию проверки доступа по роли.
package authz

import "github.com/mmeshcher/ecommerce-system/internal/model"

// Decision описывает результат проверки доступа к защищённому представлению.
type Decision int

const (
	// Allow означает, что доступ разрешён.
	Allow Decision = iota
	// RedirectLogin означает, что пользователь не вошёл и нужна страница входа.
	RedirectLogin
	// RedirectHome означает, что роль не совпадает и нужно домашнее представление роли.
	RedirectHome
)

// String возвращает название решения для логов и сообщений.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

// Decide принимает решение о доступе к представлению, требующему роль
// required. Функция чистая и не выполняет ввод-вывод, поэтому её можно
// вызывать на каждую навигацию без обновления сессии.
func Decide(s model.Session, required model.Role) Decision {
	if !s.Authenticated() {
		return RedirectLogin
	}
	if s.User.Role != required {
		return RedirectHome
	}
	return Allow
}

// HomeFor возвращает название домашнего представления для роли.
func HomeFor(role model.Role) string {
	if role == model.RoleSupplier {
		return "supplier-dashboard"
	}
	return "customer-dashboard"
}
