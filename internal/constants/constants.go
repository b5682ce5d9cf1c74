package constants

// ContextKeyPrincipal is the gin context key under which the authenticated
// principal is stored by the auth middleware.
const ContextKeyPrincipal = "principal"

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MaxTitleLength    = 200
)

const (
	DefaultListLimit = 100
)
