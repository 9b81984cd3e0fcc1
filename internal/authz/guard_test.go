package authz

import (
	"testing"

	"github.com/mmeshcher/ecommerce-system/internal/model"
)

func TestDecide(t *testing.T) {
	supplier := &model.User{ID: 1, Name: "supplier", Role: model.RoleSupplier}
	customer := &model.User{ID: 2, Name: "customer", Role: model.RoleCustomer}

	tests := []struct {
		name     string
		session  model.Session
		required model.Role
		want     Decision
	}{
		{
			name:     "no identity",
			session:  model.Session{},
			required: model.RoleCustomer,
			want:     RedirectLogin,
		},
		{
			name:     "customer to customer view",
			session:  model.Session{User: customer, Token: "t"},
			required: model.RoleCustomer,
			want:     Allow,
		},
		{
			name:     "customer to supplier view",
			session:  model.Session{User: customer, Token: "t"},
			required: model.RoleSupplier,
			want:     RedirectHome,
		},
		{
			name:     "supplier to supplier view",
			session:  model.Session{User: supplier, Token: "t"},
			required: model.RoleSupplier,
			want:     Allow,
		},
		{
			name:     "supplier to customer view",
			session:  model.Session{User: supplier, Token: "t"},
			required: model.RoleCustomer,
			want:     RedirectHome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.session, tt.required)
			if got != tt.want {
				t.Fatalf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHomeFor(t *testing.T) {
	if got := HomeFor(model.RoleSupplier); got != "supplier-dashboard" {
		t.Fatalf("HomeFor(supplier) = %q", got)
	}
	if got := HomeFor(model.RoleCustomer); got != "customer-dashboard" {
		t.Fatalf("HomeFor(customer) = %q", got)
	}
}
