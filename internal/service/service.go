// Package service holds the session, user and role use cases. Services
// return *Error values only; storage and crypto failures are logged here
// and surface as ErrInternal.
package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/antonkondratyev/api-universal/internal/metrics"
	"github.com/antonkondratyev/api-universal/internal/model"
	"github.com/antonkondratyev/api-universal/internal/queue"
	"github.com/antonkondratyev/api-universal/internal/repository"
	"github.com/antonkondratyev/api-universal/internal/telemetry"
)

// UserStore is the credential store used by the services.
type UserStore interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, u *model.User) error
	Find(ctx context.Context, ident repository.Identifier) (model.User, error)
	FindWithPassword(ctx context.Context, name string) (model.User, error)
	Exists(ctx context.Context, ident repository.Identifier) (bool, error)
	IsAdmin(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id uint, p repository.UserPatch) (model.User, error)
	SetRoles(ctx context.Context, id uint, roles []uint) error
	Delete(ctx context.Context, ident repository.Identifier) error
}

// TokenStore keeps the single refresh token digest of each user.
type TokenStore interface {
	FindByToken(ctx context.Context, hash string) (model.Token, error)
	RemoveByUser(ctx context.Context, userID uint) (bool, error)
	Rotate(ctx context.Context, userID uint, oldHash, newHash string) error
}

// RoleStore persists role tags.
type RoleStore interface {
	List(ctx context.Context) ([]model.Role, error)
	Find(ctx context.Context, ident repository.Identifier) (model.Role, error)
	FindMany(ctx context.Context, ids []uint) ([]model.Role, error)
	Missing(ctx context.Context, ids []uint) ([]uint, error)
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, id uint, p repository.RolePatch) (model.Role, error)
	Replace(ctx context.Context, id uint, name string, description *string) (model.Role, error)
	Delete(ctx context.Context, ident repository.Identifier) error
}

// Issuer signs token pairs.
type Issuer interface {
	Issue(u model.UserSummary) (model.TokenPair, error)
}

// Deps carries everything the services need. Events and Metrics may be
// nil.
type Deps struct {
	Users      UserStore
	Tokens     TokenStore
	Roles      RoleStore
	Issuer     Issuer
	Events     queue.Publisher
	Metrics    *metrics.Metrics
	Log        zerolog.Logger
	BcryptCost int
}

// base bundles the cross-cutting helpers shared by every service.
type base struct {
	log     zerolog.Logger
	events  queue.Publisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func newBase(d Deps, component string) base {
	events := d.Events
	if events == nil {
		events = queue.Nop{}
	}
	return base{
		log:     d.Log.With().Str("component", component).Logger(),
		events:  events,
		metrics: d.Metrics,
		tracer:  telemetry.Tracer(),
	}
}

// internal logs the underlying failure and hides it behind ErrInternal.
func (b base) internal(ctx context.Context, op string, err error) error {
	b.log.Error().Err(err).Str("op", op).Msg("operation failed")
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return ErrInternal
}

// publish sends an audit event. Broker failures never fail the request.
func (b base) publish(ctx context.Context, ev queue.AuthEvent) {
	if err := b.events.Publish(ctx, ev); err != nil {
		b.log.Warn().Err(err).Str("event", ev.Type).Uint("user_id", ev.UserID).Msg("audit event dropped")
	}
}

func (b base) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// requireAdmin reads the caller's admin flag from the store on every call.
// An unknown caller is treated like a non-admin.
func (b base) requireAdmin(ctx context.Context, users UserStore, caller uint) error {
	admin, err := users.IsAdmin(ctx, caller)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrForbidden
	case err != nil:
		return b.internal(ctx, "require_admin", err)
	case !admin:
		return ErrForbidden
	}
	return nil
}
