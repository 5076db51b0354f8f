package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "github.com/Hellboy20151011/Der-Kapitalist/internal/cli"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "kap",
		Short:        "Der Kapitalist CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRegisterCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newStateCmd(&apiBase),
		newSellCmd(&apiBase),
		newBuildCmd(&apiBase),
		newUpgradeCmd(&apiBase),
		newProduceCmd(&apiBase),
		newCollectCmd(&apiBase),
		newMarketCmd(&apiBase),
		newBuyCmd(&apiBase),
		newCancelCmd(&apiBase),
		newResetCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

func newRegisterCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			resp, err := newClient(apiBase).Register(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				Token:  resp.Token,
				Email:  email,
				UserID: resp.UserID,
			}); err != nil {
				return err
			}
			printSuccess("Account created. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			resp, err := newClient(apiBase).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				Token:  resp.Token,
				Email:  email,
				UserID: resp.UserID,
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

func newStateCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show your coins, inventory and buildings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).State(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderState(view)
			return nil
		},
	}
}

func newSellCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell <resource> <quantity>",
		Short: "Sell resources to the bank for coins",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			res, err := newClient(apiBase).Sell(ctx, sess.Token, args[0], qty)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sold %s %s for %s coins.", res.Quantity, res.ResourceType, res.Gain))
			return nil
		},
	}
}

func newBuildCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "build <building>",
		Short: "Construct a new building",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := newClient(apiBase).Build(ctx, sess.Token, args[0]); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Built %s at level 1.", args[0]))
			return nil
		},
	}
}

func newUpgradeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <building>",
		Short: "Upgrade an owned building by one level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := newClient(apiBase).Upgrade(ctx, sess.Token, args[0]); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Upgraded %s.", args[0]))
			return nil
		},
	}
}

func newProduceCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "produce <building> <quantity>",
		Short: "Start a production run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			res, err := newClient(apiBase).StartProduction(ctx, sess.Token, args[0], qty)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Production started, ready at %s.", res.ReadyAt.Local().Format(time.RFC1123)))
			return nil
		},
	}
}

func newCollectCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "collect <building>",
		Short: "Collect finished production",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			res, err := newClient(apiBase).Collect(ctx, sess.Token, args[0])
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Collected %s %s from %s.", res.Quantity, res.ResourceType, res.BuildingType))
			return nil
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	var resource string
	var limit int

	cmd := &cobra.Command{
		Use:   "market",
		Short: "Browse active market listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			listings, err := newClient(apiBase).Listings(ctx, sess.Token, resource, limit)
			if err != nil {
				return err
			}
			renderListings(listings)
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "filter by resource type")
	cmd.Flags().IntVar(&limit, "limit", 50, "max listings to show")

	cmd.AddCommand(newListCmd(apiBase))
	return cmd
}

func newListCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <resource> <quantity> <price-per-unit>",
		Short: "Put resources up for sale",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			price, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("price must be a number: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			listing, err := newClient(apiBase).CreateListing(ctx, sess.Token, args[0], qty, price)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Listing #%d created, expires %s.",
				listing.ID, listing.ExpiresAt.Local().Format(time.RFC1123)))
			return nil
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <listing-id>",
		Short: "Buy a market listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("listing id must be a number: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			res, err := newClient(apiBase).BuyListing(ctx, sess.Token, id)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Bought %s %s for %s coins (fee %s).",
				res.Quantity, res.ResourceType, res.Total, res.Fee))
			return nil
		},
	}
}

func newCancelCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <listing-id>",
		Short: "Cancel one of your listings and reclaim the resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("listing id must be a number: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := newClient(apiBase).CancelListing(ctx, sess.Token, id); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Listing #%d cancelled.", id))
			return nil
		},
	}
}

func newResetCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset your account to the starter state (dev servers only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			confirm, err := promptRequired("Type 'reset' to confirm")
			if err != nil {
				return err
			}
			if !strings.EqualFold(confirm, "reset") {
				printWarn("Aborted.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := newClient(apiBase).ResetAccount(ctx, sess.Token); err != nil {
				return err
			}
			printSuccess("Account reset.")
			return nil
		},
	}
}
