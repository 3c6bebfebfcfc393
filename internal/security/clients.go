package security

import "crypto/subtle"

const (
	PermOrdersRead   = "orders.read"
	PermOrdersWrite  = "orders.write"
	PermOrdersAdmin  = "orders.admin"
	PermCatalogWrite = "catalog.write"
)

// In-memory client registry (replace with DB/config later)
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"orders.read","orders.write"}
	Enabled bool
}

type Registry map[string]Client

func DefaultClients() Registry {
	return Registry{
		"simulated-client": {ID: "simulated-client", Secret: "simulated-client-secret", Perms: []string{PermOrdersRead, PermOrdersWrite}, Enabled: true},
		"backoffice":       {ID: "backoffice", Secret: "backoffice-secret", Perms: []string{PermOrdersRead, PermOrdersWrite, PermOrdersAdmin, PermCatalogWrite}, Enabled: true},
		"svc-analytics":    {ID: "svc-analytics", Secret: "ana-secret", Perms: []string{PermOrdersRead}, Enabled: true},
	}
}

// Authenticate returns the enabled client matching id and secret.
func (r Registry) Authenticate(id, secret string) (Client, bool) {
	cl, ok := r[id]
	if !ok || !cl.Enabled {
		return Client{}, false
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(cl.Secret)) != 1 {
		return Client{}, false
	}
	return cl, true
}
