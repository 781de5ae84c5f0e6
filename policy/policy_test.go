package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const permissionsJSON = `{
	"admin": ["*"],
	"operator": ["shop::stats.read", "shop::servers.read"]
}`

func newTestPolicy(t *testing.T, permissions string) Policy {
	t.Helper()

	path := filepath.Join(t.TempDir(), "permissions.json")
	if permissions != "" {
		require.NoError(t, os.WriteFile(path, []byte(permissions), 0644))
	}

	p, err := NewRegoPolicy(context.Background(), path)
	require.NoError(t, err)
	return p
}

func TestWildcardGrant(t *testing.T) {
	p := newTestPolicy(t, permissionsJSON)

	for _, permission := range []string{"shop::stats.read", "shop::maintenance.update"} {
		allowed, err := p.Allowed(context.Background(), []string{"admin"}, permission)
		require.NoError(t, err)
		assert.True(t, allowed, permission)
	}
}

func TestExactGrant(t *testing.T) {
	p := newTestPolicy(t, permissionsJSON)

	allowed, err := p.Allowed(context.Background(), []string{"operator"}, "shop::stats.read")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = p.Allowed(context.Background(), []string{"operator"}, "shop::maintenance.update")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestUnknownRole(t *testing.T) {
	p := newTestPolicy(t, permissionsJSON)

	allowed, err := p.Allowed(context.Background(), []string{"guest"}, "shop::stats.read")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = p.Allowed(context.Background(), nil, "shop::stats.read")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMissingPermissionsFile(t *testing.T) {
	// no file means no grants, everything is denied
	p := newTestPolicy(t, "")

	allowed, err := p.Allowed(context.Background(), []string{"admin"}, "shop::stats.read")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestInvalidPermissionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := NewRegoPolicy(context.Background(), path)
	assert.Error(t, err)
}
