package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserTableName(t *testing.T) {
	user := User{}
	assert.Equal(t, "users", user.TableName(), "Table name should be 'users'")
}

func TestUserDefaultValues(t *testing.T) {
	user := User{
		Email: "new@example.com",
	}

	assert.Equal(t, "", user.Role, "Role should be empty string by default in Go struct")
	assert.False(t, user.IsStaff(), "A user without a role is not staff")
}

func TestUserIsStaff(t *testing.T) {
	tests := []struct {
		name string
		role string
		want bool
	}{
		{"customer role", RoleCustomer, false},
		{"staff role", RoleStaff, true},
		{"unknown role", "baker", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := User{Email: "test@example.com", Role: tt.role}
			assert.Equal(t, tt.want, user.IsStaff())
		})
	}
}
