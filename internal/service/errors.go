package service

import "errors"

// Kind classifies a service failure. The HTTP layer maps kinds to status
// codes; nothing else about an error leaks to clients except its message.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindAlreadyExists
	KindNotFound
	KindInvalidCredentials
	KindInvalidToken
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidToken:
		return "invalid_token"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	}
	return "internal"
}

// Error is a classified failure with a client-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found variant.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels, one per kind.
var (
	ErrValidation         = &Error{KindValidation, "Invalid Request"}
	ErrAlreadyExists      = &Error{KindAlreadyExists, "Already Exists"}
	ErrNotFound           = &Error{KindNotFound, "Not Found"}
	ErrInvalidCredentials = &Error{KindInvalidCredentials, "Incorrect Password"}
	ErrInvalidToken       = &Error{KindInvalidToken, "Token Not Valid"}
	ErrUnauthorized       = &Error{KindUnauthorized, "Unauthorized"}
	ErrForbidden          = &Error{KindForbidden, "User Not Admin"}
	ErrInternal           = &Error{KindInternal, "Internal Server Error"}
)

// Scenario-specific variants.
var (
	ErrCredentialsRequired = &Error{KindValidation, "Username and Password required"}
	ErrUserExists          = &Error{KindAlreadyExists, "User Already Exists"}
	ErrUserNotFound        = &Error{KindNotFound, "User Not Found"}
	ErrUserNotExists       = &Error{KindNotFound, "User Not Exists"}
	ErrNoToken             = &Error{KindUnauthorized, "No Token Provided"}
	ErrRoleNameRequired    = &Error{KindValidation, "Role Name required"}
	ErrRoleIDsRequired     = &Error{KindValidation, "Role Ids required"}
	ErrRoleExists          = &Error{KindAlreadyExists, "Role Already Exists"}
	ErrRoleNotExists       = &Error{KindNotFound, "Role Not Exists"}
	ErrRoleNotAssigned     = &Error{KindNotFound, "Role Not Assigned"}
)

// KindOf returns the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}
