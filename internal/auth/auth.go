// Package auth identifies the caller of a request and decides whether the
// caller may perform an action. Services assume the decision was made.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type Action string

const (
	ActionUsersCreate          Action = "users:create"
	ActionUsersRead            Action = "users:read"
	ActionWarehousesRead       Action = "warehouses:read"
	ActionWarehousesWrite      Action = "warehouses:write"
	ActionEquipmentRead        Action = "equipment:read"
	ActionEquipmentWrite       Action = "equipment:write"
	ActionTransactionsCreate   Action = "transactions:create"
	ActionTransactionsRead     Action = "transactions:read"
	ActionDocumentsRead        Action = "documents:read"
	ActionDocumentsMaterialize Action = "documents:materialize"
	ActionDocumentsSign        Action = "documents:sign"
)

const (
	RoleAdmin       = "admin"
	RoleStorekeeper = "storekeeper"
	RoleSigner      = "signer"
	RoleAuditor     = "auditor"
)

type Principal struct {
	UserID int64
	Roles  []string
}

// Authorizer approves or rejects an action before any service is called.
type Authorizer interface {
	Authorize(ctx context.Context, p Principal, action Action) error
}

type AuthorizerFunc func(ctx context.Context, p Principal, action Action) error

func (f AuthorizerFunc) Authorize(ctx context.Context, p Principal, action Action) error {
	return f(ctx, p, action)
}

// AllowAll approves every authenticated principal.
var AllowAll = AuthorizerFunc(func(_ context.Context, p Principal, _ Action) error {
	if p.UserID == 0 {
		return ErrUnauthorized
	}
	return nil
})

// RoleAuthorizer grants actions by role. RoleAdmin is granted everything.
type RoleAuthorizer struct {
	grants map[string]mapset.Set[Action]
}

func NewRoleAuthorizer() *RoleAuthorizer {
	readOnly := []Action{
		ActionUsersRead, ActionWarehousesRead, ActionEquipmentRead,
		ActionTransactionsRead, ActionDocumentsRead,
	}
	return &RoleAuthorizer{grants: map[string]mapset.Set[Action]{
		RoleStorekeeper: mapset.NewSet(append([]Action{
			ActionEquipmentWrite, ActionTransactionsCreate, ActionDocumentsMaterialize,
		}, readOnly...)...),
		RoleSigner: mapset.NewSet(append([]Action{
			ActionDocumentsSign, ActionDocumentsMaterialize,
		}, readOnly...)...),
		RoleAuditor: mapset.NewSet(readOnly...),
	}}
}

// Grant adds actions to role.
func (a *RoleAuthorizer) Grant(role string, actions ...Action) {
	set, ok := a.grants[role]
	if !ok {
		set = mapset.NewSet[Action]()
		a.grants[role] = set
	}
	set.Append(actions...)
}

func (a *RoleAuthorizer) Authorize(_ context.Context, p Principal, action Action) error {
	if p.UserID == 0 {
		return ErrUnauthorized
	}
	for _, role := range p.Roles {
		if role == RoleAdmin {
			return nil
		}
		if set, ok := a.grants[role]; ok && set.Contains(action) {
			return nil
		}
	}
	return ErrForbidden
}

// HeaderAuthenticator trusts identity headers set by an upstream gateway.
type HeaderAuthenticator struct{}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{}
}

func (h *HeaderAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	raw := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if raw == "" {
		return Principal{}, ErrUnauthorized
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, ErrUnauthorized
	}

	p := Principal{UserID: id}
	if roles := strings.TrimSpace(r.Header.Get("X-User-Roles")); roles != "" {
		p.Roles = splitCSV(roles)
	}
	return p, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
