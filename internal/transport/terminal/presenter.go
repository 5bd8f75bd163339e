package terminal

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

const defaultDisplayDuration = 4 * time.Second

// Presenter prints one notification at a time and reports completion once its
// display duration has elapsed.
type Presenter struct {
	out      io.Writer
	duration time.Duration

	mu       sync.Mutex
	complete func()
	timer    *time.Timer
	shown    uint64
}

func NewPresenter(out io.Writer, duration time.Duration) *Presenter {
	if duration <= 0 {
		duration = defaultDisplayDuration
	}
	return &Presenter{out: out, duration: duration}
}

// OnComplete sets the callback fired when a presentation finishes.
func (p *Presenter) OnComplete(fn func()) *Presenter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.complete = fn
	return p
}

func (p *Presenter) Present(message string) {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.shown++
	id := p.shown
	fmt.Fprintf(p.out, ">> %s\n", message)
	p.timer = time.AfterFunc(p.duration, func() { p.finish(id) })
	p.mu.Unlock()
}

// finish fires the callback only for the presentation that armed the timer.
func (p *Presenter) finish(id uint64) {
	p.mu.Lock()
	if id != p.shown {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	complete := p.complete
	p.mu.Unlock()

	if complete != nil {
		complete()
	}
}

func (p *Presenter) Idle() {}

// Stop cancels a pending completion.
func (p *Presenter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.shown++
}

var _ port.NotificationPresenter = (*Presenter)(nil)
