package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesPrefix(t *testing.T) {
	id := NewDesignID()
	assert.True(t, strings.HasPrefix(id, PrefixDesign+"_"), "got %q", id)
	require.NoError(t, Validate(id, PrefixDesign))
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewUserID()
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestValidateRejectsWrongPrefix(t *testing.T) {
	id := NewUserID()
	err := Validate(id, PrefixDesign)
	require.Error(t, err)
	assert.Contains(t, err.Error(), PrefixDesign)
}

func TestValidateRejectsGarbage(t *testing.T) {
	assert.Error(t, Validate("not a typeid", PrefixUser))
	assert.Error(t, Validate("", PrefixUser))
}
