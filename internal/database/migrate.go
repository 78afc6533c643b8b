package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/antonkondratyev/api-universal/internal/model"
)

// models lists every persistent model in dependency order.
func models() []any {
	return []any{&model.Role{}, &model.User{}, &model.Token{}}
}

// Migrate creates or updates the tables for all models.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(models()...)
}

// Reset drops every table and recreates the schema from scratch.
func Reset(ctx context.Context, db *gorm.DB) error {
	m := db.WithContext(ctx).Migrator()
	all := models()
	for i := len(all) - 1; i >= 0; i-- {
		if err := m.DropTable(all[i]); err != nil {
			return err
		}
	}
	return Migrate(ctx, db)
}
