package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/user"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
)

const usage = `Commands:
> register --username <name> --password <at least 4 chars>
> login --username <name> --password <password>
> show-portfolio [--base <code>]
> buy --currency <code> --amount <amount>
> sell --currency <code> --amount <amount>
> get-rate --from <code> --to <code>
> update-rates [--source all|coingecko|exchangerate]
> show-rates [--currency <code>] [--top <n>]
> help
To leave: exit, quit`

var errQuit = errors.New("quit")

// session is one interactive shell. It remembers the logged-in user
// between commands.
type session struct {
	app  *app.App
	out  io.Writer
	user *user.User
	// readPassword prompts for a password when --password is omitted.
	readPassword func(prompt string) (string, error)
}

func newSession(a *app.App, out io.Writer, readPassword func(string) (string, error)) *session {
	return &session{app: a, out: out, readPassword: readPassword}
}

// parseFlags collects "--key value" pairs. A trailing flag gets an empty
// value and stray positional tokens are ignored.
func parseFlags(tokens []string) map[string]string {
	out := make(map[string]string)
	for i := 0; i < len(tokens); i++ {
		key, ok := strings.CutPrefix(tokens[i], "--")
		if !ok {
			continue
		}
		if k, v, found := strings.Cut(key, "="); found {
			out[k] = v
			continue
		}
		if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
			out[key] = tokens[i+1]
			i++
			continue
		}
		out[key] = ""
	}
	return out
}

// run reads commands from in until EOF or exit.
func (s *session) run(ctx context.Context, in io.Reader) error {
	headColor.Fprintln(s.out, "ValutaTrade Hub, currency exchange in your console.")
	fmt.Fprintln(s.out, usage)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		err := s.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		}
		if err != nil {
			renderError(s.out, err, s.app.Deps.CurrencyRegistry.Codes())
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// exec runs a single command line.
func (s *session) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	tokens, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	cmd, kw := strings.ToLower(tokens[0]), parseFlags(tokens[1:])

	switch cmd {
	case "exit", "quit":
		return errQuit
	case "help":
		fmt.Fprintln(s.out, usage)
	case "register":
		password, err := s.password(kw)
		if err != nil {
			return err
		}
		u, err := s.app.Register(ctx, kw["username"], password)
		if err != nil {
			return err
		}
		okColor.Fprintf(s.out, "User '%s' registered (id=%s). Log in: login --username %s --password ****\n",
			u.Username, u.ID, u.Username)
	case "login":
		password, err := s.password(kw)
		if err != nil {
			return err
		}
		u, err := s.app.Login(ctx, kw["username"], password)
		if err != nil {
			return err
		}
		s.user = u
		okColor.Fprintf(s.out, "Logged in as '%s'\n", u.Username)
	case "show-portfolio":
		val, err := s.app.ValuatePortfolio(ctx, s.userID(), kw["base"])
		if err != nil {
			return err
		}
		renderValuation(s.out, s.user.Username, val)
	case "buy", "sell":
		amount, err := parseAmount(kw["amount"])
		if err != nil {
			return err
		}
		trade := s.app.Buy
		if cmd == "sell" {
			trade = s.app.Sell
		}
		res, err := trade(ctx, s.userID(), kw["currency"], amount)
		if err != nil {
			return err
		}
		renderTrade(s.out, res)
	case "get-rate":
		return getRate(ctx, s.app, s.out, kw["from"], kw["to"])
	case "update-rates":
		return updateRates(ctx, s.app, s.out, kw["source"])
	case "show-rates":
		top, err := parseTop(kw["top"])
		if err != nil {
			return err
		}
		return showRates(ctx, s.app, s.out, kw["currency"], top)
	default:
		return fmt.Errorf("%w: unknown command '%s', type help", domain.ErrValidation, tokens[0])
	}
	return nil
}

func (s *session) userID() uuid.UUID {
	if s.user == nil {
		return uuid.Nil
	}
	return s.user.ID
}

func (s *session) password(kw map[string]string) (string, error) {
	if p, ok := kw["password"]; ok && p != "" {
		return p, nil
	}
	if s.readPassword == nil {
		return "", nil
	}
	return s.readPassword("Password: ")
}

func parseAmount(raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: --amount is required", domain.ErrInvalidAmount)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: '%s'", domain.ErrInvalidAmount, raw)
	}
	return v, nil
}

func parseTop(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: --top must be a positive integer", domain.ErrValidation)
	}
	return n, nil
}

func hint(err error, supported []string) string {
	switch {
	case errors.Is(err, domain.ErrCurrencyNotFound):
		return "use a supported code (" + strings.Join(supported, ", ") + ")"
	case errors.Is(err, domain.ErrRateUnavailable), errors.Is(err, domain.ErrProviderFailure):
		return "try again later or run update-rates"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "login --username <name> --password <password>"
	default:
		return ""
	}
}
