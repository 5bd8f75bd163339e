package usecase

import (
	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

type nopMetrics struct{}

var _ port.ClientMetrics = nopMetrics{}

func (nopMetrics) SessionBuilt(string) {}
func (nopMetrics) Transition(domain.ViewName, domain.ViewName) {}
func (nopMetrics) Redirect(string) {}
func (nopMetrics) StaleTransition() {}
func (nopMetrics) ChannelOpened(string) {}
func (nopMetrics) ChannelClosed(string) {}
func (nopMetrics) NotificationsPending(int) {}
