package api

import (
	"net/http"
	"strings"
)

// Route binds a method and path template to a handler. Templates use
// :param segments matched positionally with an exact segment count; no
// wildcards or regexes. The table is ordered and the first match wins.
type Route struct {
	Method      string
	Pattern     string
	Handler     HandlerFunc
	RequireAuth bool
}

// Routes returns the static route table. The same table serves every
// dispatcher front-end.
func (a *API) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Pattern: "/api/auth/request-pin", Handler: a.RequestPin},
		{Method: http.MethodPost, Pattern: "/api/auth/login", Handler: a.Login},
		{Method: http.MethodPost, Pattern: "/api/auth/signup", Handler: a.Signup},
		{Method: http.MethodGet, Pattern: "/api/auth/me", Handler: a.Me, RequireAuth: true},
		{Method: http.MethodPost, Pattern: "/api/auth/logout", Handler: a.Logout},

		{Method: http.MethodGet, Pattern: "/api/profiles/:username", Handler: a.GetProfile},
		{Method: http.MethodPut, Pattern: "/api/profiles/:username", Handler: a.UpdateProfile, RequireAuth: true},

		{Method: http.MethodGet, Pattern: "/api/subscribers/:username", Handler: a.ListSubscribers},
		{Method: http.MethodPost, Pattern: "/api/subscribers/:username", Handler: a.Subscribe, RequireAuth: true},
		{Method: http.MethodPost, Pattern: "/api/subscribers/:username/add-by-email", Handler: a.AddSubscriberByEmail, RequireAuth: true},
		{Method: http.MethodPut, Pattern: "/api/subscribers/:username/:subscriberUsername", Handler: a.UpdateSubscriber, RequireAuth: true},
		{Method: http.MethodDelete, Pattern: "/api/subscribers/:username/:subscriberUsername", Handler: a.RemoveSubscriber, RequireAuth: true},
		{Method: http.MethodGet, Pattern: "/api/subscriptions/:username", Handler: a.ListSubscriptions},

		{Method: http.MethodGet, Pattern: "/api/groups/user/:username", Handler: a.ListGroupsForUser},
		{Method: http.MethodGet, Pattern: "/api/groups/:groupName", Handler: a.GetGroup},
		{Method: http.MethodPost, Pattern: "/api/groups", Handler: a.CreateGroup, RequireAuth: true},
		{Method: http.MethodPost, Pattern: "/api/groups/:groupName/join", Handler: a.JoinGroup, RequireAuth: true},
		{Method: http.MethodPut, Pattern: "/api/groups/:groupName/members/:username", Handler: a.UpdateMember, RequireAuth: true},
		{Method: http.MethodDelete, Pattern: "/api/groups/:groupName/members/:username", Handler: a.RemoveMember, RequireAuth: true},

		{Method: http.MethodGet, Pattern: "/api/updates/:username", Handler: a.ListUpdates},
	}
}

// normalizePath strips a trailing slash so "/api/groups/" and "/api/groups"
// resolve to the same route.
func normalizePath(p string) string {
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// matchPattern matches a normalized path against a route pattern. It
// returns the :param captures when the segment counts agree and every
// literal segment matches exactly.
func matchPattern(pattern, path string) (map[string]string, bool) {
	patSegs := splitSegments(pattern)
	reqSegs := splitSegments(path)
	if len(patSegs) != len(reqSegs) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range patSegs {
		if strings.HasPrefix(seg, ":") {
			params[seg[1:]] = reqSegs[i]
			continue
		}
		if seg != reqSegs[i] {
			return nil, false
		}
	}
	return params, true
}

// findRoute resolves (method, path) against the table. First match wins.
func findRoute(routes []Route, method, path string) (*Route, map[string]string, bool) {
	for i := range routes {
		route := &routes[i]
		if route.Method != method {
			continue
		}
		if params, ok := matchPattern(route.Pattern, path); ok {
			return route, params, true
		}
	}
	return nil, nil, false
}
