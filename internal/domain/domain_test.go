package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("ADMIN").Valid())
	assert.False(t, Role("").Valid())
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	u := &User{ID: 7, Username: "alice", Role: RoleAdmin}
	ctx := WithPrincipal(context.Background(), u.Principal())

	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.True(t, p.IsAdmin())
}

func TestPrincipalFrom_NilStored(t *testing.T) {
	ctx := WithPrincipal(context.Background(), nil)
	_, ok := PrincipalFrom(ctx)
	assert.False(t, ok)

	var p *Principal
	assert.False(t, p.IsAdmin())
}
