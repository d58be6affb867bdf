package tenant

import "errors"

var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantNotActive     = errors.New("tenant not active")
	ErrAmbiguousTenant     = errors.New("ambiguous tenant")
	ErrDuplicateRoutingKey = errors.New("duplicate routing key")
	ErrInvalidTransition   = errors.New("invalid lifecycle transition")
	ErrInvalidRoutingKey   = errors.New("invalid routing key")
)
