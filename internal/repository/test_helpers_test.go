package repository

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/antonkondratyev/api-universal/internal/database/dbtest"
	"github.com/antonkondratyev/api-universal/internal/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	return dbtest.Open(t)
}

// seedTestUser inserts a user with a placeholder hash.
func seedTestUser(t *testing.T, db *gorm.DB, name string) model.User {
	t.Helper()
	u := model.User{Name: name, Password: "$2a$04$placeholder"}
	if err := NewUserRepo(db).Create(context.Background(), &u); err != nil {
		t.Fatalf("seeding user %q: %v", name, err)
	}
	return u
}

func seedTestRole(t *testing.T, db *gorm.DB, name string) model.Role {
	t.Helper()
	r := model.Role{Name: name}
	if err := NewRoleRepo(db).Create(context.Background(), &r); err != nil {
		t.Fatalf("seeding role %q: %v", name, err)
	}
	return r
}

func countTokens(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.Token{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("counting tokens: %v", err)
	}
	return n
}
