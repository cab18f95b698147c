package auth

import (
	"slices"

	"plantdoc/internal/model"
)

const (
	LoginPath             = "/login"
	HomePath              = "/"
	AdminDashboardPath    = "/admin/dashboard"
	EmployerDashboardPath = "/employer/dashboard"
)

// RouteRequirements describes who may open a route
type RouteRequirements struct {
	Protected    bool
	AllowedRoles []model.Role
}

// Decision is the guard's verdict. Redirect is empty when Allow is true.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision               { return Decision{Allow: true} }
func redirect(path string) Decision { return Decision{Redirect: path} }
func (d Decision) String() string {
	if d.Allow {
		return "allow"
	}
	return "redirect " + d.Redirect
}

// HomeFor returns the landing path of a role
func HomeFor(r model.Role) string {
	switch r {
	case model.RoleAdmin:
		return AdminDashboardPath
	case model.RoleEmployer:
		return EmployerDashboardPath
	case model.RoleUser:
		return HomePath
	default:
		return LoginPath
	}
}

// Guard decides whether ac may open a route with req
func Guard(req RouteRequirements, ac AuthContext) Decision {
	if !req.Protected {
		if ac.TokenValid && (ac.Role == model.RoleAdmin || ac.Role == model.RoleEmployer) {
			return redirect(HomeFor(ac.Role))
		}
		return allow()
	}

	if !ac.TokenValid {
		return redirect(LoginPath)
	}
	if len(req.AllowedRoles) > 0 && !slices.Contains(req.AllowedRoles, ac.Role) {
		return redirect(HomeFor(ac.Role))
	}
	return allow()
}
