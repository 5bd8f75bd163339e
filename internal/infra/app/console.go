package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

// console turns input lines into navigations and chat commands.
type console struct {
	app *Application
	in  io.Reader
	wg  sync.WaitGroup
}

func newConsole(app *Application, in io.Reader) *console {
	return &console{app: app, in: in}
}

// errQuit ends the console loop without reporting a failure.
var errQuit = errors.New("quit")

func (c *console) run(ctx context.Context, fragment string) error {
	defer c.wg.Wait()

	if fragment != "" {
		c.navigate(ctx, fragment)
	}

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.handle(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			c.app.renderer.Alert(domain.AlertError, err.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read console input: %w", err)
	}
	return nil
}

// navigate runs each fragment change on its own goroutine so a slow view setup
// never blocks newer input.
func (c *console) navigate(ctx context.Context, fragment string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := c.app.router.Navigate(ctx, fragment)
		if t.Stale {
			c.app.logger.Debug("navigation superseded", zap.String("fragment", fragment))
		}
	}()
}

func (c *console) handle(ctx context.Context, line string) error {
	if strings.HasPrefix(line, "#") {
		c.navigate(ctx, line)
		return nil
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/say":
		if arg == "" {
			return errors.New("usage: /say <text>")
		}
		if err := c.app.chat.Send(arg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	case "/typing":
		return c.app.chat.Typing()
	case "/stop":
		return c.app.chat.StopTyping()
	case "/notify":
		if arg == "" {
			return errors.New("usage: /notify <text>")
		}
		c.app.queue.Enqueue(arg)
	case "/logout":
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.app.router.Logout(ctx)
		}()
	case "/quit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
