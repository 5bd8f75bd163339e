package port

import "github.com/dan-divy/spruce-sub000/internal/core/domain"

// ClientMetrics records client-side lifecycle counters.
type ClientMetrics interface {
	SessionBuilt(outcome string)
	Transition(requested, resolved domain.ViewName)
	Redirect(reason string)
	StaleTransition()
	ChannelOpened(namespace string)
	ChannelClosed(namespace string)
	NotificationsPending(count int)
}

// RegistrationValidator checks a register form before it is submitted.
type RegistrationValidator interface {
	Validate(form domain.Registration) error
}
