package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "kingo/internal/cli"
	"kingo/internal/config"
	"kingo/internal/game"
	"kingo/internal/syncq"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "kng",
		Short:        "Kingo CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newJoinCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newStatusCmd(&apiBase),
		newAssetsCmd(&apiBase),
		newSubscribeCmd(&apiBase),
		newSwapCmd(&apiBase),
		newSyncCmd(&apiBase),
		newPortfolioCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newCrownCmd(&apiBase),
		newPrizeCmd(&apiBase),
		newEventsCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newJoinCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "join [handle]",
		Short: "Join the game and save a session token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var handle string
			var err error
			if len(args) > 0 {
				handle = strings.TrimSpace(args[0])
			} else {
				handle, err = promptRequired("Handle")
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Join(ctx, handle)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{Handle: out.Handle, Token: out.Token}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Joined as %s. Session saved.", out.Handle))
			printInfo("Run `kng subscribe` during the trading window to get your allotment.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Restore a session from an existing token",
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := promptRequired("Handle")
			if err != nil {
				return err
			}
			token, err := promptSecret("Token")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			// Verify the token actually works before persisting it.
			if _, err := client.Game(ctx, token); err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			if err := cl.SaveSession(cl.Session{Handle: handle, Token: token}); err != nil {
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

func newStatusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show game phase, schedule and crown",
		Aliases: []string{"game"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Game(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderGame(out)
			return nil
		},
	}
}

func newAssetsCmd(apiBase *string) *cobra.Command {
	assets := &cobra.Command{
		Use:     "assets",
		Short:   "Asset registry commands",
		Aliases: []string{"asset"},
	}
	assets.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tradable assets with live prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Assets(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderAssets(out)
			return nil
		},
	})
	assets.AddCommand(&cobra.Command{
		Use:   "register [asset_id]",
		Short: "Register an oracle asset (organizer only, before subscriptions open)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			id, err := int64FromArgOrPrompt(args, 0, "Asset ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).RegisterAsset(ctx, sess.Token, id)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Registered asset #%d (%s).", out.ID, out.Description))
			return nil
		},
	})
	return assets
}

func newSubscribeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe to the game and receive the starting allotment",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Subscribe(ctx, sess.Token)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Subscribed. Starting balance: %s v-USD.", formatMicros(out.TotalValueMicros)))
			return nil
		},
	}
}

func newSwapCmd(apiBase *string) *cobra.Command {
	var queueOnCooldown bool
	cmd := &cobra.Command{
		Use:   "swap [from_asset] [to_asset] [amount]",
		Short: "Swap between two assets at oracle prices",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			from, err := int64FromArgOrPromptAllowZero(args, 0, "From asset ID")
			if err != nil {
				return err
			}
			to, err := int64FromArgOrPromptAllowZero(args, 1, "To asset ID")
			if err != nil {
				return err
			}
			var amount float64
			if len(args) > 2 {
				amount, err = strconv.ParseFloat(strings.TrimSpace(args[2]), 64)
				if err != nil || amount <= 0 {
					return fmt.Errorf("invalid amount")
				}
			} else {
				amount, err = promptFloat("Amount (units of the from-asset)", 0)
				if err != nil {
					return err
				}
			}
			amountMicros := game.UnitsToMicros(amount)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Swap(ctx, sess.Token, from, to, amountMicros)
			if err != nil {
				if queueOnCooldown && isCooldownError(err) {
					if qerr := syncq.Push(syncq.Swap{FromAsset: from, ToAsset: to, AmountMicros: amountMicros}); qerr != nil {
						return qerr
					}
					printWarn("Swap delayed by cooldown; queued locally. Run `kng sync` after the cooldown.")
					return nil
				}
				return err
			}
			renderSwap(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&queueOnCooldown, "queue", false, "queue the swap locally if the cooldown has not elapsed")
	return cmd
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued swaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
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

			remaining := make([]syncq.Swap, 0, len(queue))
			replayed := 0
			for _, q := range queue {
				if _, err := client.Swap(ctx, sess.Token, q.FromAsset, q.ToAsset, q.AmountMicros); err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %d->%d: %v", q.FromAsset, q.ToAsset, err))
					continue
				}
				replayed++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", replayed, len(remaining)))
			return nil
		},
	}
}

func newPortfolioCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "portfolio [handle]",
		Short:   "Show a portfolio (yours by default)",
		Aliases: []string{"pf"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			handle := ""
			if len(args) > 0 {
				handle = strings.TrimSpace(args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Portfolio(ctx, sess.Token, handle)
			if err != nil {
				return err
			}
			renderPortfolio(out)
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Short:   "Rank subscribers by portfolio value",
		Aliases: []string{"lb"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderLeaderboard(out)
			return nil
		},
	}
}

func newCrownCmd(apiBase *string) *cobra.Command {
	crown := &cobra.Command{
		Use:   "crown",
		Short: "Crown commands",
	}
	crown.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current crown holder",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Crown(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderCrown(out)
			return nil
		},
	})
	crown.AddCommand(&cobra.Command{
		Use:   "steal",
		Short: "Claim the crown during the dispute window",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).StealCrown(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderSteal(out)
			return nil
		},
	})
	return crown
}

func newPrizeCmd(apiBase *string) *cobra.Command {
	prize := &cobra.Command{
		Use:   "prize",
		Short: "Prize vault commands",
	}
	prize.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List prize pools",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Prizes(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderPrizes(out)
			return nil
		},
	})
	prize.AddCommand(&cobra.Command{
		Use:   "topup [token] [amount]",
		Short: "Fund a prize pool (organizer only)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			rewardToken, amountMicros, err := prizeArgs(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).TopUpPrize(ctx, sess.Token, rewardToken, amountMicros)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Prize pool %s funded. Remaining: %s.", out.Token, formatMicros(out.RemainingMicros)))
			return nil
		},
	})
	prize.AddCommand(&cobra.Command{
		Use:   "redeem [token] [amount]",
		Short: "Redeem from a prize pool (crown holder, after the dispute window)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			rewardToken, amountMicros, err := prizeArgs(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).RedeemPrize(ctx, sess.Token, rewardToken, amountMicros)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Redeemed %s from %s. Remaining: %s.", formatMicros(amountMicros), out.Token, formatMicros(out.RemainingMicros)))
			return nil
		},
	})
	return prize
}

func newEventsCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent game events",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Events(ctx, sess.Token, limit)
			if err != nil {
				return err
			}
			renderEvents(out)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum events to show")
	return cmd
}

func prizeArgs(args []string) (string, int64, error) {
	var token string
	var err error
	if len(args) > 0 {
		token = strings.ToUpper(strings.TrimSpace(args[0]))
	} else {
		token, err = promptRequired("Reward token")
		if err != nil {
			return "", 0, err
		}
		token = strings.ToUpper(strings.TrimSpace(token))
	}
	var amount float64
	if len(args) > 1 {
		amount, err = strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
		if err != nil || amount <= 0 {
			return "", 0, fmt.Errorf("invalid amount")
		}
	} else {
		amount, err = promptFloat("Amount (units)", 0)
		if err != nil {
			return "", 0, err
		}
	}
	return token, game.UnitsToMicros(amount), nil
}

func isCooldownError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "swap delay not elapsed")
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}

// Asset 0 is the v-USD numeraire, so swap prompts must accept zero.
func int64FromArgOrPromptAllowZero(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 0)
}
