package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/antonkondratyev/api-universal/internal/config"
	"github.com/antonkondratyev/api-universal/internal/database/dbtest"
	"github.com/antonkondratyev/api-universal/internal/model"
	"github.com/antonkondratyev/api-universal/internal/queue"
	"github.com/antonkondratyev/api-universal/internal/repository"
	"github.com/antonkondratyev/api-universal/internal/utils"
)

// recorder keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	deps     Deps
	issuer   *utils.TokenIssuer
	events   *recorder
	sessions *SessionService
	users    *UserService
	roles    *RoleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	issuer := utils.NewTokenIssuer(config.TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	})
	events := &recorder{}
	d := Deps{
		Users:      repository.NewUserRepo(db),
		Tokens:     repository.NewTokenRepo(db),
		Roles:      repository.NewRoleRepo(db),
		Issuer:     issuer,
		Events:     events,
		Log:        zerolog.Nop(),
		BcryptCost: bcrypt.MinCost,
	}
	return &fixture{
		db:       db,
		deps:     d,
		issuer:   issuer,
		events:   events,
		sessions: NewSessionService(d),
		users:    NewUserService(d),
		roles:    NewRoleService(d),
	}
}

// register signs up a user and fails the test on error.
func (f *fixture) register(t *testing.T, name string) model.TokenCredentials {
	t.Helper()
	creds, err := f.sessions.Register(context.Background(), name, "password-"+name)
	if err != nil {
		t.Fatalf("Register(%q) error = %v", name, err)
	}
	return creds
}

func (f *fixture) tokenRows(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.Token{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("counting tokens: %v", err)
	}
	return n
}

func (f *fixture) userRows(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.User{}).Count(&n).Error; err != nil {
		t.Fatalf("counting users: %v", err)
	}
	return n
}

func (f *fixture) storedHash(t *testing.T, userID uint) string {
	t.Helper()
	var tok model.Token
	if err := f.db.Where("user_id = ?", userID).Take(&tok).Error; err != nil {
		t.Fatalf("loading token: %v", err)
	}
	return tok.Hash
}
