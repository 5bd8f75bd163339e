package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dan-divy/spruce-sub000/internal/infra/app"
	"github.com/dan-divy/spruce-sub000/internal/infra/config"
)

// Builder constructs the application for a command. Tests replace it.
type Builder func(ctx context.Context, cfg *config.AppConfig, out io.Writer) (*app.Application, error)

type options struct {
	logLevel string
	storage  string
	build    Builder
	cfg      *config.AppConfig
}

// NewRootCmd creates the root cobra command for the spruce client.
func NewRootCmd() *cobra.Command {
	return newRootCmd(app.New)
}

func newRootCmd(build Builder) *cobra.Command {
	opts := &options{build: build}

	root := &cobra.Command{
		Use:   "spruce",
		Short: "Terminal client for the Spruce social platform",
		Long:  "spruce signs in to a Spruce server, navigates its views and follows chat and notifications in realtime.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if opts.storage != "" {
				cfg.Storage.Backend = opts.storage
			}
			opts.cfg = cfg
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.storage, "storage", "", "Credential storage backend (file, redis)")

	root.AddCommand(
		newRunCmd(opts),
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newStatusCmd(opts),
	)

	return root
}

// withApp builds the application, runs fn and closes it.
func withApp(cmd *cobra.Command, opts *options, fn func(ctx context.Context, a *app.Application) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := opts.build(ctx, opts.cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close(context.WithoutCancel(ctx))
	}()

	return fn(ctx, a)
}

// prompt reads a line from in when value is empty.
func prompt(in *bufio.Reader, out io.Writer, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a secret without echo when stdin is a terminal and falls
// back to prompt otherwise.
func promptPassword(src io.Reader, in *bufio.Reader, out io.Writer, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	f, ok := src.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(in, out, label, value)
	}

	fmt.Fprintf(out, "%s: ", label)
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(secret)), nil
}
