package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cl "vencha/internal/cli"
	"vencha/internal/config"
	"vencha/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "vc",
		Short:        "Vencha CLI: swipe, invest, negotiate, exit",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newPortfolioCmd(&apiBase),
		newStartupsCmd(&apiBase),
		newInvestCmd(&apiBase),
		newPledgeCmd(&apiBase),
		newNegotiateCmd(&apiBase),
		newExitCmd(&apiBase),
		newPassCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a Vencha account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `vc login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Vencha",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newPortfolioCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "portfolio",
		Short:   "Show your cash, level, and holdings",
		Aliases: []string{"pf"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Portfolio(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderPortfolio(out)
		},
	}
}

func newStartupsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "startups [id]",
		Short: "Browse the pitch deck or inspect one startup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)

			if len(args) == 0 {
				out, err := client.ListStartups(ctx, sess.AccessToken)
				if err != nil {
					return err
				}
				return renderStartupsList(out)
			}
			out, err := client.StartupDetail(ctx, sess.AccessToken, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return renderStartupDetail(out)
		},
	}
}

func newInvestCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "invest [startup_id]",
		Short: "Invest at the startup's valuation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			startupID, err := stringFromArgOrPrompt(args, 0, "Startup ID")
			if err != nil {
				return err
			}
			amount, err := promptFloat("Amount ($)", 0)
			if err != nil {
				return err
			}

			idem := uuid.NewString()
			body := map[string]any{"startup_id": startupID, "amount": amount}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Invest(ctx, sess.AccessToken, startupID, amount, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/investments",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderInvestResult(out, "INVESTMENT")
		},
	}
}

func newPledgeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pledge [startup_id]",
		Short: "Pledge toward a funding round for a share of the offered equity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			startupID, err := stringFromArgOrPrompt(args, 0, "Startup ID")
			if err != nil {
				return err
			}
			amount, err := promptFloat("Amount ($)", 0)
			if err != nil {
				return err
			}

			idem := uuid.NewString()
			body := map[string]any{"startup_id": startupID, "amount": amount}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Pledge(ctx, sess.AccessToken, startupID, amount, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/investments/pledge",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderInvestResult(out, "PLEDGE")
		},
	}
}

func newNegotiateCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "negotiate [startup_id]",
		Short: "Haggle over terms before committing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			startupID, err := stringFromArgOrPrompt(args, 0, "Startup ID")
			if err != nil {
				return err
			}
			amount, err := promptFloat("Offer amount ($)", 0)
			if err != nil {
				return err
			}
			askPercent, err := promptOptionalPercent("Requested equity % (blank = fair ask)")
			if err != nil {
				return err
			}

			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			opened, err := client.OpenNegotiation(ctx, sess.AccessToken, startupID, amount, askPercent/100)
			if err != nil {
				return err
			}
			negID, err := renderCounterOffer(opened)
			if err != nil {
				return err
			}

			choice, err := promptChoice("Respond", []string{"accept", "revise", "cancel"}, "accept")
			if err != nil {
				return err
			}
			switch choice {
			case "accept":
				out, err := client.AcceptCounter(ctx, sess.AccessToken, negID, uuid.NewString())
				if err != nil {
					return err
				}
				return renderInvestResult(out, "DEAL CLOSED")
			case "revise":
				out, err := client.ReviseOffer(ctx, sess.AccessToken, negID, uuid.NewString())
				if err != nil {
					return err
				}
				return renderInvestResult(out, "DEAL CLOSED")
			default:
				if _, err := client.CancelNegotiation(ctx, sess.AccessToken, negID); err != nil {
					return err
				}
				printInfo("Negotiation cancelled. No money moved.")
				return nil
			}
		},
	}
}

func newExitCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "exit [holding_id]",
		Short: "Resolve an exit event for a holding",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			holdingID, err := stringFromArgOrPrompt(args, 0, "Holding ID")
			if err != nil {
				return err
			}
			exitType, err := promptChoice("Exit type", []string{"ipo", "acquisition", "liquidation"}, "ipo")
			if err != nil {
				return err
			}
			fraction, err := promptFraction("Sell fraction (0-1]", 1)
			if err != nil {
				return err
			}

			idem := uuid.NewString()
			body := map[string]any{"exit_type": exitType, "sell_fraction": fraction}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.ExitHolding(ctx, sess.AccessToken, holdingID, exitType, fraction, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/holdings/" + holdingID + "/exit",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderExitResult(out)
		},
	}
}

func newPassCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pass",
		Short: "Pass on the current pitch (the market still moves)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := client.PassSwipe(ctx, sess.AccessToken); err != nil {
				return err
			}
			printInfo("Passed. Portfolio ticked.")
			return nil
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			success := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				if err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				success++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", success, len(remaining)))
			return nil
		},
	}
}

// queueOnNetworkError stores the write for `vc sync` when the API was
// unreachable. Structured API rejections are surfaced as-is; replaying a
// request the server already refused would just fail again.
func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	if isAPIStructuredError(err) {
		return err
	}
	if qErr := syncq.Push(cmd); qErr != nil {
		return fmt.Errorf("request failed and could not be queued: %w", err)
	}
	printWarn(fmt.Sprintf("Offline: queued %s %s for `vc sync`.", cmd.Method, cmd.Path))
	return nil
}

func isAPIStructuredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "api status")
}

func stringFromArgOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx {
		v := strings.TrimSpace(args[idx])
		if v == "" {
			return "", fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptRequired(label)
}
