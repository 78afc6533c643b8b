package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/antonkondratyev/api-universal/internal/model"
)

// TokenRepo persists refresh token digests, at most one per user.
type TokenRepo struct{ DB *gorm.DB }

func NewTokenRepo(db *gorm.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Add stores the digest for userID. A second row for the same user is
// rejected with ErrDuplicate.
func (r *TokenRepo) Add(ctx context.Context, userID uint, hash string) error {
	return insertToken(r.DB.WithContext(ctx), userID, hash)
}

// FindByToken returns the row holding the given digest.
func (r *TokenRepo) FindByToken(ctx context.Context, hash string) (model.Token, error) {
	var t model.Token
	err := r.DB.WithContext(ctx).Where("token = ?", hash).Take(&t).Error
	return t, translate(err)
}

// FindByUser returns the token row of userID.
func (r *TokenRepo) FindByUser(ctx context.Context, userID uint) (model.Token, error) {
	var t model.Token
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Take(&t).Error
	return t, translate(err)
}

// RemoveByToken deletes the row holding the digest and reports whether
// one existed.
func (r *TokenRepo) RemoveByToken(ctx context.Context, hash string) (bool, error) {
	res := r.DB.WithContext(ctx).Where("token = ?", hash).Delete(&model.Token{})
	return res.RowsAffected > 0, res.Error
}

// RemoveByUser deletes the token row of userID and reports whether one
// existed.
func (r *TokenRepo) RemoveByUser(ctx context.Context, userID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Token{})
	return res.RowsAffected > 0, res.Error
}

// Rotate replaces the stored digest of userID with newHash in one
// transaction. With a non-empty oldHash the row must match both the user
// and the digest, otherwise ErrNotFound is returned and nothing changes.
// An empty oldHash drops whatever row the user has.
func (r *TokenRepo) Rotate(ctx context.Context, userID uint, oldHash, newHash string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("user_id = ?", userID)
		if oldHash != "" {
			q = q.Where("token = ?", oldHash)
		}
		res := q.Delete(&model.Token{})
		if res.Error != nil {
			return res.Error
		}
		if oldHash != "" && res.RowsAffected != 1 {
			return ErrNotFound
		}
		return insertToken(tx, userID, newHash)
	})
}

func insertToken(db *gorm.DB, userID uint, hash string) error {
	t := model.Token{UserID: userID, Hash: hash}
	return translate(db.Omit(clause.Associations).Create(&t).Error)
}
