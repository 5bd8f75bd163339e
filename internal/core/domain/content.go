package domain

// AlertLevel classifies a transient user-visible alert.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"
	AlertWarning AlertLevel = "warning"
	AlertError   AlertLevel = "error"
)

// ViewItem is one entry of a view's fetched data (a post, a room, a file, a user).
type ViewItem struct {
	ID    string
	Label string
}

// ViewData is the result of a view's setup fetch.
type ViewData struct {
	View  ViewName
	Title string
	Items []ViewItem
}

// Registration carries the fields of the register form.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
}
