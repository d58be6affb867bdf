package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/syntroph/crm/internal/models"
)

// Catalog is the read-only registry surface the resolver needs.
type Catalog interface {
	Lookup(ctx context.Context, routingKey string) (*models.TenantRecord, error)
	LookupID(ctx context.Context, id uuid.UUID) (*models.TenantRecord, error)
}

// RequestMeta carries the pieces of an inbound request that can identify a
// tenant. All fields are optional.
type RequestMeta struct {
	// Explicit is the tenant credential the caller attached to the request
	// (header value); either a tenant UUID or a routing key.
	Explicit string
	// Host is the request's Host header, possibly with a port.
	Host string
	// HomeRoutingKey is the authenticated principal's home tenant, if the
	// principal is already known.
	HomeRoutingKey string
}

// Resolver maps request metadata to a tenant record. Precedence: explicit
// credential, then host subdomain, then the principal's home tenant. A
// conflict between the explicit credential and the host is an error, never
// a silent pick.
type Resolver struct {
	cat        Catalog
	baseDomain string
}

func NewResolver(cat Catalog, baseDomain string) *Resolver {
	return &Resolver{cat: cat, baseDomain: baseDomain}
}

func (r *Resolver) Resolve(ctx context.Context, meta RequestMeta) (*models.TenantRecord, error) {
	hostKey := r.subdomain(meta.Host)

	var resolved *models.TenantRecord

	if meta.Explicit != "" {
		rec, err := r.lookupExplicit(ctx, meta.Explicit)
		if err != nil {
			return nil, err
		}
		if hostKey != "" && hostKey != rec.RoutingKey {
			hostRec, err := r.cat.Lookup(ctx, hostKey)
			switch {
			case err == nil:
				if hostRec.ID != rec.ID {
					return nil, fmt.Errorf("%w: header says %q, host implies %q",
						ErrAmbiguousTenant, rec.RoutingKey, hostRec.RoutingKey)
				}
			case errors.Is(err, ErrTenantNotFound):
				// Host label isn't a tenant; no conflict to detect.
			default:
				// A registry failure must not silently skip the ambiguity
				// check and resolve to the header tenant.
				return nil, err
			}
		}
		resolved = rec
	}

	if resolved == nil && hostKey != "" {
		rec, err := r.cat.Lookup(ctx, hostKey)
		switch {
		case err == nil:
			resolved = rec
		case errors.Is(err, ErrTenantNotFound):
			// Host didn't match a tenant; fall through to the principal.
		default:
			return nil, err
		}
	}

	if resolved == nil && meta.HomeRoutingKey != "" {
		rec, err := r.cat.Lookup(ctx, meta.HomeRoutingKey)
		if err != nil && !errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
		resolved = rec
	}

	if resolved == nil {
		return nil, ErrTenantNotFound
	}
	if !resolved.Status.Routable() {
		return nil, fmt.Errorf("%w: %s is %s", ErrTenantNotActive, resolved.RoutingKey, resolved.Status)
	}
	return resolved, nil
}

func (r *Resolver) lookupExplicit(ctx context.Context, explicit string) (*models.TenantRecord, error) {
	if id, err := uuid.Parse(explicit); err == nil {
		return r.cat.LookupID(ctx, id)
	}
	return r.cat.Lookup(ctx, explicit)
}

// subdomain extracts a candidate routing key from the request host. With a
// configured base domain only hosts directly under it match; otherwise the
// first label of any dotted host is used.
func (r *Resolver) subdomain(host string) string {
	if host == "" {
		return ""
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)

	if r.baseDomain != "" {
		sub, ok := strings.CutSuffix(host, "."+r.baseDomain)
		if !ok || strings.Contains(sub, ".") {
			return ""
		}
		return candidateOrEmpty(sub)
	}

	label, rest, ok := strings.Cut(host, ".")
	if !ok || rest == "" {
		return ""
	}
	return candidateOrEmpty(label)
}

func candidateOrEmpty(label string) string {
	switch label {
	case "", "www", "api", "app":
		return ""
	}
	return label
}
