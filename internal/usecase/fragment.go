package usecase

import (
	"net/url"
	"strings"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

// primaryParam names the route field filled by the segment following a view name.
var primaryParam = map[domain.ViewName]string{
	domain.ViewCommunity:  "community",
	domain.ViewCollection: "collection",
	domain.ViewFile:       "file",
	domain.ViewProfile:    "user",
}

var paramKeywords = map[string]struct{}{
	"room":       {},
	"chat":       {},
	"file":       {},
	"community":  {},
	"collection": {},
	"user":       {},
}

// ParseFragment parses a navigation fragment such as "#community/7/chat/42".
// Unknown view names yield a route whose View is ViewUnresolved.
func ParseFragment(fragment string) domain.Route {
	route := domain.Route{Fragment: fragment}

	trimmed := strings.TrimSpace(fragment)
	trimmed = strings.TrimLeft(trimmed, "#/")
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}

	var segments []string
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(segment); err == nil {
			segment = unescaped
		}
		segments = append(segments, segment)
	}
	if len(segments) == 0 {
		route.View = domain.ViewMain
		return route
	}

	view := domain.ViewName(strings.ToLower(segments[0]))
	if !view.IsKnown() {
		return route
	}
	route.View = view
	rest := segments[1:]

	if keyword, ok := primaryParam[view]; ok && len(rest) > 0 && !isKeyword(rest[0]) {
		setParam(&route, keyword, rest[0])
		rest = rest[1:]
	}

	for len(rest) >= 2 {
		if isKeyword(rest[0]) {
			setParam(&route, strings.ToLower(rest[0]), rest[1])
		}
		rest = rest[2:]
	}

	// A room inside a community is the chat view; a file inside a collection is the file view.
	switch {
	case route.View == domain.ViewCommunity && route.ChatroomID != "":
		route.View = domain.ViewChat
	case route.View == domain.ViewCollection && route.FileID != "":
		route.View = domain.ViewFile
	}

	return route
}

func isKeyword(segment string) bool {
	_, ok := paramKeywords[strings.ToLower(segment)]
	return ok
}

func setParam(route *domain.Route, keyword, value string) {
	switch keyword {
	case "room", "chat":
		route.ChatroomID = value
	case "file":
		route.FileID = value
	case "community":
		route.CommunityID = value
	case "collection":
		route.CollectionID = value
	case "user":
		route.Username = value
	}
}
