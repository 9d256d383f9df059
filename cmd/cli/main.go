// Command cli is the console front end of the trading hub.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirasaad/valutatrade/infra/initializer"
	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd wires the commands around an App built lazily from the
// environment, so help and flag errors need no storage.
func newRootCmd() *cobra.Command {
	var (
		envFile string
		a       *app.App
	)
	root := &cobra.Command{
		Use:           "valutatrade",
		Short:         "ValutaTrade Hub: fiat and crypto trading in the console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			deps, err := initializer.InitializeDependencies(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			a = app.New(deps, cfg)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load")

	appFn := func() *app.App { return a }
	root.AddCommand(
		newShellCmd(appFn),
		newGetRateCmd(appFn),
		newUpdateRatesCmd(appFn),
		newShowRatesCmd(appFn),
	)
	return root
}

func newShellCmd(appFn func() *app.App) *cobra.Command {
	var scheduler bool
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a := appFn()
			if scheduler {
				a.StartScheduler(ctx)
			}
			s := newSession(a, cmd.OutOrStdout(), terminalPassword(cmd.OutOrStdout()))
			return s.run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&scheduler, "scheduler", false, "refresh rates in the background while the shell runs")
	return cmd
}

func newGetRateCmd(appFn func() *app.App) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "get-rate",
		Short: "Print the exchange rate between two currencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getRate(cmd.Context(), appFn(), cmd.OutOrStdout(), from, to)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source currency code")
	cmd.Flags().StringVar(&to, "to", "", "target currency code")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newUpdateRatesCmd(appFn func() *app.App) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "update-rates",
		Short: "Fetch fresh rates from the configured providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateRates(cmd.Context(), appFn(), cmd.OutOrStdout(), source)
		},
	}
	cmd.Flags().StringVar(&source, "source", "all", "provider to refresh (all, coingecko, exchangerate, static)")
	return cmd
}

func newShowRatesCmd(appFn func() *app.App) *cobra.Command {
	var (
		code string
		top  int
	)
	cmd := &cobra.Command{
		Use:   "show-rates",
		Short: "Print the locally cached rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return fmt.Errorf("--top must be a positive integer")
			}
			return showRates(cmd.Context(), appFn(), cmd.OutOrStdout(), code, top)
		},
	}
	cmd.Flags().StringVar(&code, "currency", "", "only pairs involving this currency")
	cmd.Flags().IntVar(&top, "top", 0, "only the n highest rates")
	return cmd
}

func getRate(ctx context.Context, a *app.App, w io.Writer, from, to string) error {
	q, err := a.LookupRate(ctx, from, to)
	if err != nil {
		return err
	}
	renderQuote(w, q)
	return nil
}

func updateRates(ctx context.Context, a *app.App, w io.Writer, source string) error {
	res, err := a.RefreshRates(ctx, source)
	if err != nil {
		return err
	}
	renderRefresh(w, res)
	return nil
}

func showRates(ctx context.Context, a *app.App, w io.Writer, code string, top int) error {
	list, err := a.ListCachedRates(ctx, code, top)
	if err != nil {
		return err
	}
	renderRates(w, list)
	return nil
}

// terminalPassword reads a password without echo when stdin is a terminal.
func terminalPassword(w io.Writer) func(string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(prompt string) (string, error) {
		fmt.Fprint(w, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}
