package promocode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p := New(30)
	assert.Len(t, p.Code, codeLength)
	assert.Equal(t, 30, p.Duration)
	assert.False(t, p.Activated)

	for _, c := range p.Code {
		assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected character %q", c)
	}
}

func TestCodesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := New(30).Code
		assert.False(t, seen[code])
		seen[code] = true
	}
}

func TestActivate(t *testing.T) {
	p := New(30)

	require.NoError(t, p.Activate(100))
	assert.True(t, p.Activated)
	assert.EqualValues(t, 100, p.ActivatedBy)

	err := p.Activate(200)
	assert.ErrorIs(t, err, ErrPromocodeActivated)
	assert.EqualValues(t, 100, p.ActivatedBy)
}

func TestDeactivate(t *testing.T) {
	p := New(30)
	require.NoError(t, p.Activate(100))

	p.Deactivate()
	assert.False(t, p.Activated)
	assert.Zero(t, p.ActivatedBy)

	require.NoError(t, p.Activate(200))
	assert.EqualValues(t, 200, p.ActivatedBy)
}
