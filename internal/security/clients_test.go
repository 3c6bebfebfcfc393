package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAuthenticate(t *testing.T) {
	r := Registry{
		"a": {ID: "a", Secret: "s", Perms: []string{PermOrdersRead}, Enabled: true},
		"b": {ID: "b", Secret: "s", Enabled: false},
	}

	cl, ok := r.Authenticate("a", "s")
	assert.True(t, ok)
	assert.Equal(t, []string{PermOrdersRead}, cl.Perms)

	_, ok = r.Authenticate("a", "wrong")
	assert.False(t, ok)
	_, ok = r.Authenticate("b", "s")
	assert.False(t, ok)
	_, ok = r.Authenticate("nobody", "s")
	assert.False(t, ok)

	_, ok = DefaultClients().Authenticate("backoffice", "backoffice-secret")
	assert.True(t, ok)
}
