package port

import "github.com/dan-divy/spruce-sub000/internal/core/domain"

// Renderer draws views. Implementations must tolerate calls for views no longer showing.
type Renderer interface {
	Shell(route domain.Route, session *domain.SessionContext)
	Populate(route domain.Route, data domain.ViewData)
	Alert(level domain.AlertLevel, message string)
}

// NotificationPresenter shows one notification at a time.
type NotificationPresenter interface {
	Present(message string)
	Idle()
}
