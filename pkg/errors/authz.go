package errors

// AuthzKind classifies an authorization failure.
type AuthzKind int

const (
	// AuthzForbidden means the identity is not permitted to perform the action.
	// It is also returned when no rule matches at all, so callers probing for
	// resource ids cannot distinguish "exists, not yours" from "doesn't exist".
	AuthzForbidden AuthzKind = iota + 1
	// AuthzNotFound means the role-level check passed but the resource is absent.
	AuthzNotFound
)

// AuthzError is the expected, recoverable outcome of a denied authorization.
// Denial is a normal result, never a panic or an internal fault.
type AuthzError struct {
	Kind   AuthzKind
	Reason string
}

func (e *AuthzError) Error() string {
	switch e.Kind {
	case AuthzNotFound:
		return "resource not found"
	default:
		if e.Reason != "" {
			return "forbidden: " + e.Reason
		}
		return "forbidden"
	}
}

func Forbidden(reason string) *AuthzError {
	return &AuthzError{Kind: AuthzForbidden, Reason: reason}
}

func ResourceNotFound() *AuthzError {
	return &AuthzError{Kind: AuthzNotFound}
}
