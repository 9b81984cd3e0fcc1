// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ecommerce-system/internal/model"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLen = 8

// ValidateRegistration проверяет поля формы регистрации и возвращает
// сообщения об ошибках, сгруппированные по имени поля. Пустой результат
// означает, что все поля корректны.
func ValidateRegistration(name, email, password string, role model.Role) map[string][]string {
	errs := make(map[string][]string)

	if name == "" {
		errs["name"] = append(errs["name"], "The name field is required.")
	}

	if email == "" {
		errs["email"] = append(errs["email"], "The email field is required.")
	} else if !emailRe.MatchString(email) {
		errs["email"] = append(errs["email"], "The email must be a valid email address.")
	}

	if password == "" {
		errs["password"] = append(errs["password"], "The password field is required.")
	} else if len(password) < minPasswordLen {
		errs["password"] = append(errs["password"], fmt.Sprintf("The password must be at least %d characters.", minPasswordLen))
	}

	if !role.Valid() {
		errs["role"] = append(errs["role"], "The selected role is invalid.")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateProductInput проверяет поля товара: название обязательно,
// цена и количество не могут быть отрицательными.
func ValidateProductInput(in model.ProductInput) map[string][]string {
	errs := make(map[string][]string)

	if in.Name == "" {
		errs["name"] = append(errs["name"], "The name field is required.")
	}
	if in.Price.LessThan(decimal.Zero) {
		errs["price"] = append(errs["price"], "The price must be at least 0.")
	}
	if in.Quantity < 0 {
		errs["quantity"] = append(errs["quantity"], "The quantity must be at least 0.")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
