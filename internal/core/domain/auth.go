package domain

// Role identifies the access level carried by an API token
type Role string

const (
	// RoleAdmin can manage bindings, trigger syncs and run imports
	RoleAdmin Role = "admin"
	// RoleService is used by internal services calling the API
	RoleService Role = "service"
)

// TokenClaims holds the claims carried in an API access token
type TokenClaims struct {
	Subject   string `json:"subject"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}
