package middleware

import "strings"

// RouteClass - категория маршрута с точки зрения авторизации.
type RouteClass string

const (
	RoutePublic        RouteClass = "public"
	RouteAuthEntry     RouteClass = "auth_entry"
	RouteProtectedAPI  RouteClass = "protected_api"
	RouteProtectedPage RouteClass = "protected_page"
)

// RoutePolicy задает классификацию путей.
type RoutePolicy struct {
	PublicPaths    []string
	AuthEntryPaths []string
	APIPrefix      string
	LoginPath      string
	LandingPath    string
}

// DefaultRoutePolicy - политика приложения.
func DefaultRoutePolicy() RoutePolicy {
	return RoutePolicy{
		PublicPaths:    []string{"/", "/health", "/metrics", "/api/auth/login", "/api/auth/register"},
		AuthEntryPaths: []string{"/login", "/register"},
		APIPrefix:      "/api/",
		LoginPath:      "/login",
		LandingPath:    "/generate",
	}
}

// Classify возвращает класс маршрута. Совпадение публичных путей точное,
// все, что не публично и не страница входа, считается защищенным.
func (p RoutePolicy) Classify(path string) RouteClass {
	for _, pub := range p.PublicPaths {
		if path == pub {
			return RoutePublic
		}
	}
	for _, entry := range p.AuthEntryPaths {
		if path == entry {
			return RouteAuthEntry
		}
	}
	if p.APIPrefix != "" && strings.HasPrefix(path, p.APIPrefix) {
		return RouteProtectedAPI
	}
	return RouteProtectedPage
}
