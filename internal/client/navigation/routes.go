// Package navigation names the client's destinations and abstracts how the
// app moves between them, so flow controllers can redirect without knowing
// whether they run under the REPL or a test.
package navigation

const (
	RouteHome          = "/"
	RouteDashboard     = "/dashboard"
	RouteOnboarding    = "/onboarding"
	RouteVerifyEmail   = "/auth/verify-email"
	RouteVerify        = "/auth/verify"
	RouteOAuthCallback = "/oauth/callback"
)

// Navigator moves the client to a destination. Push keeps the current
// location in history; Replace swaps it out so the user cannot navigate back
// to a consumed page such as a verification link.
type Navigator interface {
	Push(dest string)
	Replace(dest string)
}

// AuthenticatedRedirect is where a signed-in user lands by default.
func AuthenticatedRedirect(hasDevice bool) string {
	if hasDevice {
		return RouteDashboard
	}
	return RouteOnboarding
}

// RequiresAuth reports whether dest is only meaningful with a valid session.
func RequiresAuth(dest string) bool {
	switch dest {
	case RouteDashboard:
		return true
	default:
		return false
	}
}

// IsAuthRoute reports whether dest belongs to the sign-in flow.
func IsAuthRoute(dest string) bool {
	switch dest {
	case RouteVerifyEmail, RouteVerify:
		return true
	default:
		return false
	}
}
