package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAuthorizer(t *testing.T) {
	a := NewRoleAuthorizer()
	ctx := context.Background()

	tests := []struct {
		name   string
		p      Principal
		action Action
		want   error
	}{
		{"anonymous", Principal{}, ActionDocumentsRead, ErrUnauthorized},
		{"admin", Principal{UserID: 1, Roles: []string{RoleAdmin}}, ActionUsersCreate, nil},
		{"storekeeper submits", Principal{UserID: 2, Roles: []string{RoleStorekeeper}}, ActionTransactionsCreate, nil},
		{"storekeeper cannot sign", Principal{UserID: 2, Roles: []string{RoleStorekeeper}}, ActionDocumentsSign, ErrForbidden},
		{"signer signs", Principal{UserID: 3, Roles: []string{RoleSigner}}, ActionDocumentsSign, nil},
		{"auditor reads", Principal{UserID: 4, Roles: []string{RoleAuditor}}, ActionTransactionsRead, nil},
		{"auditor cannot move", Principal{UserID: 4, Roles: []string{RoleAuditor}}, ActionTransactionsCreate, ErrForbidden},
		{"unknown role", Principal{UserID: 5, Roles: []string{"intern"}}, ActionDocumentsRead, ErrForbidden},
		{"any matching role", Principal{UserID: 6, Roles: []string{"intern", RoleSigner}}, ActionDocumentsSign, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(ctx, tt.p, tt.action)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestRoleAuthorizerGrant(t *testing.T) {
	a := NewRoleAuthorizer()
	p := Principal{UserID: 9, Roles: []string{"intern"}}

	require.ErrorIs(t, a.Authorize(context.Background(), p, ActionEquipmentRead), ErrForbidden)
	a.Grant("intern", ActionEquipmentRead)
	assert.NoError(t, a.Authorize(context.Background(), p, ActionEquipmentRead))
}

func TestAllowAll(t *testing.T) {
	assert.NoError(t, AllowAll.Authorize(context.Background(), Principal{UserID: 1}, ActionDocumentsSign))
	assert.ErrorIs(t, AllowAll.Authorize(context.Background(), Principal{}, ActionDocumentsSign), ErrUnauthorized)
}

func TestHeaderAuthenticator(t *testing.T) {
	h := NewHeaderAuthenticator()

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-ID", "7")
	r.Header.Set("X-User-Roles", "signer, auditor,,")
	p, err := h.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, []string{"signer", "auditor"}, p.Roles)

	r = httptest.NewRequest("GET", "/", nil)
	_, err = h.Authenticate(r)
	assert.ErrorIs(t, err, ErrUnauthorized)

	r.Header.Set("X-User-ID", "abc")
	_, err = h.Authenticate(r)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: 3})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), p.UserID)
}
