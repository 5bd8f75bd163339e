package domain

import "strings"

// ViewName identifies one of the mutually exclusive views.
type ViewName string

const (
	ViewUnresolved       ViewName = ""
	ViewLogin            ViewName = "login"
	ViewRegister         ViewName = "register"
	ViewMain             ViewName = "main"
	ViewChat             ViewName = "chat"
	ViewCommunity        ViewName = "community"
	ViewCollection       ViewName = "collection"
	ViewFile             ViewName = "file"
	ViewProfile          ViewName = "profile"
	ViewSettings         ViewName = "settings"
	ViewAdmin            ViewName = "admin"
	ViewAdminUsers       ViewName = "admin-users"
	ViewAdminCommunities ViewName = "admin-communities"
)

var knownViews = map[ViewName]struct{}{
	ViewLogin:            {},
	ViewRegister:         {},
	ViewMain:             {},
	ViewChat:             {},
	ViewCommunity:        {},
	ViewCollection:       {},
	ViewFile:             {},
	ViewProfile:          {},
	ViewSettings:         {},
	ViewAdmin:            {},
	ViewAdminUsers:       {},
	ViewAdminCommunities: {},
}

// IsKnown reports whether the view is part of the view set.
func (v ViewName) IsKnown() bool {
	_, ok := knownViews[v]
	return ok
}

// IsAdmin reports whether the view requires the admin capability.
func (v ViewName) IsAdmin() bool {
	return strings.HasPrefix(string(v), "admin")
}

// IsPublic reports whether the view renders without a session.
func (v ViewName) IsPublic() bool {
	return v == ViewLogin || v == ViewRegister
}

// Route is a parsed navigation fragment.
type Route struct {
	Fragment string
	View     ViewName

	CollectionID string
	CommunityID  string
	ChatroomID   string
	FileID       string
	Username     string
}

// Redirect returns a copy of the route resolved to another view without params.
func (r Route) Redirect(view ViewName) Route {
	return Route{Fragment: r.Fragment, View: view}
}
