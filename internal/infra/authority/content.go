package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

// resource is the union of fields the content API returns for posts, rooms,
// files, users and communities.
type resource struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	Caption   string `json:"caption"`
	Text      string `json:"text"`
	Filename  string `json:"filename"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

func (r resource) label() string {
	for _, candidate := range []string{r.Name, r.Title, r.Caption, r.Text, r.Filename, r.Username} {
		if candidate != "" {
			return candidate
		}
	}
	return r.ID
}

// Load performs a view's setup fetch using the session's access credential.
func (c *Client) Load(ctx context.Context, route domain.Route, session domain.SessionContext) (domain.ViewData, error) {
	data := domain.ViewData{View: route.View}

	path, title, err := contentPath(route, session)
	if err != nil {
		return data, err
	}
	data.Title = title
	if path == "" {
		return data, nil
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, session.Token, nil, &raw); err != nil {
		return data, fmt.Errorf("load %s: %w", route.View, err)
	}

	items, err := decodeItems(raw)
	if err != nil {
		return data, fmt.Errorf("load %s: %w", route.View, err)
	}
	data.Items = items
	return data, nil
}

// contentPath maps a route to its content endpoint. An empty path means the
// view has nothing to fetch.
func contentPath(route domain.Route, session domain.SessionContext) (string, string, error) {
	esc := url.PathEscape

	switch route.View {
	case domain.ViewMain:
		return "/post/feed", "Feed", nil
	case domain.ViewCommunity:
		if route.CommunityID == "" {
			return "/community", "Communities", nil
		}
		return "/community/" + esc(route.CommunityID), "Community", nil
	case domain.ViewCollection:
		if route.CollectionID == "" {
			return "/collection", "Collections", nil
		}
		return "/collection/" + esc(route.CollectionID), "Collection", nil
	case domain.ViewFile:
		if route.CollectionID == "" || route.FileID == "" {
			return "", "File", nil
		}
		return "/collection/" + esc(route.CollectionID) + "/file/" + esc(route.FileID), "File", nil
	case domain.ViewProfile:
		username := route.Username
		if username == "" {
			username = session.Username
		}
		return "/user/" + esc(username), "Profile", nil
	case domain.ViewSettings:
		return "/user/" + esc(session.Username), "Settings", nil
	case domain.ViewChat:
		if route.ChatroomID != "" {
			return "/chatroom/" + esc(route.ChatroomID), "Chatroom", nil
		}
		if route.CommunityID != "" {
			return "/community/" + esc(route.CommunityID) + "/chatroom", "Chatrooms", nil
		}
		// Private chatrooms have no listing endpoint yet.
		return "", "Chatrooms", nil
	case domain.ViewAdmin:
		return "/admin/stats", "Administration", nil
	case domain.ViewAdminUsers:
		return "/admin/users", "Users", nil
	case domain.ViewAdminCommunities:
		return "/admin/communities", "Communities", nil
	case domain.ViewLogin, domain.ViewRegister:
		return "", "", nil
	default:
		return "", "", fmt.Errorf("no content for view %q", route.View)
	}
}

// decodeItems accepts either a list of resources or a single resource.
func decodeItems(raw json.RawMessage) ([]domain.ViewItem, error) {
	var list []resource
	if err := json.Unmarshal(raw, &list); err == nil {
		items := make([]domain.ViewItem, 0, len(list))
		for _, r := range list {
			items = append(items, domain.ViewItem{ID: r.ID, Label: r.label()})
		}
		return items, nil
	}

	var single resource
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return []domain.ViewItem{{ID: single.ID, Label: single.label()}}, nil
}
