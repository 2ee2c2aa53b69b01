package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/client"
	"github.com/frahmantamala/backoffice-access/internal/session"
	"github.com/frahmantamala/backoffice-access/pkg/logger"
	"github.com/spf13/cobra"
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Client-side access commands",
	Long:  `Sign in against a running server and evaluate access decisions the way a back-office client does`,
}

var accessCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate access decisions for a principal",
	Long: `Sign in with --email/--password or reuse --token, compile the principal's grants and
evaluate each --check given as module:action or module:form:action.`,
	Example: `  backoffice-access access check --email hr@mail.com --password password --check hr:view --check hr:employees:edit`,
	RunE: runAccessCheck,
}

var (
	accessEmail    string
	accessPassword string
	accessToken    string
	accessChecks   []string
	accessRefresh  bool
	accessBaseURL  string
)

func runAccessCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	backend := client.New(client.Config{
		BaseURL: getStringFlag(accessBaseURL, cfg.Client.BaseURL),
		Timeout: cfg.Client.Timeout,
	}, lg)
	store := session.NewStore(backend, access.NewCompiler(lg), lg,
		session.WithRefreshTimeout(cfg.Client.RefreshTimeout),
	)
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	state, err := openAccessSession(ctx, store, accessEmail, accessPassword, accessToken, accessRefresh)
	if err != nil {
		return err
	}
	if accessToken == "" {
		defer store.Logout(context.Background())
	}
	if state.LoadErr != nil {
		fmt.Fprintf(os.Stderr, "warning: permissions could not be loaded: %v\n", state.LoadErr)
	}

	printAccessReport(os.Stdout, state, accessChecks)
	return nil
}

// openAccessSession signs in with a token or credentials and optionally
// forces one refresh. A failed permission load is not an error; the returned
// state carries it in LoadErr.
func openAccessSession(ctx context.Context, store *session.Store, email, password, token string, refresh bool) (*session.State, error) {
	var (
		state *session.State
		err   error
	)
	switch {
	case token != "":
		state, err = store.Restore(ctx, token, "")
	case email != "" && password != "":
		state, err = store.Login(ctx, email, password)
	default:
		return nil, fmt.Errorf("either --token or --email and --password are required")
	}
	if err != nil {
		return nil, err
	}

	if refresh {
		refreshed, err := store.RefreshPermissions(ctx)
		if err != nil && !session.IsPermissionLoadError(err) {
			return nil, err
		}
		if refreshed != nil {
			state = refreshed
		}
	}
	return state, nil
}

func printAccessReport(w io.Writer, state *session.State, checks []string) {
	eval := state.Evaluator()
	out := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer out.Flush()

	fmt.Fprintf(out, "user\t%d (%s)\n", state.Principal.UserID, state.Principal.Email)
	fmt.Fprintf(out, "status\t%s\n", state.Status)
	sys := eval.System()
	fmt.Fprintf(out, "system\tadmin=%t users=%t roles=%t permissions=%t\n",
		sys.IsAdmin, sys.CanManageUsers, sys.CanManageRoles, sys.CanManagePermissions)
	if state.Snapshot != nil {
		fmt.Fprintf(out, "permissions\t%s\n", strings.Join(state.Snapshot.Permissions(), " "))
	}

	if len(checks) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "CHECK\tDECISION")
	for _, c := range checks {
		module, form, action, ok := parseCheck(c)
		if !ok {
			fmt.Fprintf(out, "%s\tinvalid\n", c)
			continue
		}
		decision := "deny"
		if eval.Check(module, form, action) {
			decision = "allow"
		}
		fmt.Fprintf(out, "%s\t%s\n", c, decision)
	}
}

// parseCheck splits module:action or module:form:action.
func parseCheck(s string) (module, form, action string, ok bool) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		return parts[0], "", parts[1], parts[0] != ""
	case 3:
		return parts[0], parts[1], parts[2], parts[0] != "" && parts[1] != ""
	}
	return "", "", "", false
}

func init() {
	accessCheckCmd.Flags().StringVar(&accessEmail, "email", "", "Login email")
	accessCheckCmd.Flags().StringVar(&accessPassword, "password", "", "Login password")
	accessCheckCmd.Flags().StringVar(&accessToken, "token", "", "Existing access token")
	accessCheckCmd.Flags().StringArrayVar(&accessChecks, "check", nil, "Decision to evaluate, module:action or module:form:action (repeatable)")
	accessCheckCmd.Flags().BoolVar(&accessRefresh, "refresh", false, "Refresh permissions once before evaluating")
	accessCheckCmd.Flags().StringVar(&accessBaseURL, "base-url", "", "Server base URL (overrides config)")

	accessCmd.AddCommand(accessCheckCmd)

	rootCmd.AddCommand(accessCmd)
}
