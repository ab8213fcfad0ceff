package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/lib-go-checkout/app/api"
	"github.com/vibast-solutions/lib-go-checkout/app/resolver"
	"github.com/vibast-solutions/lib-go-checkout/app/types"
)

var (
	intentAmount    int64
	intentCurrency  string
	intentMethods   []string
	intentEmail     string
	intentProvider  string
	intentReference string
	intentCountry   string
	intentTimeout   time.Duration
)

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Payment intent commands",
}

var intentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a payment intent and print the providers a checkout would offer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := types.CheckoutConfig{
			Amount:            intentAmount,
			Currency:          intentCurrency,
			Customer:          types.Customer{Email: intentEmail},
			Reference:         intentReference,
			Methods:           types.ParseMethods(intentMethods),
			PreferredProvider: intentProvider,
			Country:           intentCountry,
		}
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			return err
		}

		client := newAPIClient(mustLoadConfig(), nil)
		return runJob("intent_create", func() error {
			ctx, cancel := context.WithTimeout(cmd.Context(), intentTimeout)
			defer cancel()
			return createIntent(ctx, client, cfg, cmd.OutOrStdout())
		})
	},
}

var intentCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a payment intent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(mustLoadConfig(), nil)
		return runJob("intent_cancel", func() error {
			ctx, cancel := context.WithTimeout(cmd.Context(), intentTimeout)
			defer cancel()
			resp, err := client.CancelPaymentIntent(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		})
	},
}

var intentGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show the backend record of a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(mustLoadConfig(), nil)
		return runJob("intent_get", func() error {
			ctx, cancel := context.WithTimeout(cmd.Context(), intentTimeout)
			defer cancel()
			resp, err := client.GetPayment(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		})
	},
}

func init() {
	rootCmd.AddCommand(intentCmd)
	intentCmd.AddCommand(intentCreateCmd)
	intentCmd.AddCommand(intentCancelCmd)
	intentCmd.AddCommand(intentGetCmd)

	intentCmd.PersistentFlags().DurationVar(&intentTimeout, "timeout", 30*time.Second, "Overall deadline for the command")

	flags := intentCreateCmd.Flags()
	flags.Int64Var(&intentAmount, "amount", 0, "Amount in the smallest currency unit")
	flags.StringVar(&intentCurrency, "currency", "", "ISO 4217 currency code")
	flags.StringSliceVar(&intentMethods, "methods", []string{"card", "mobile_money"}, "Accepted payment methods")
	flags.StringVar(&intentEmail, "email", "", "Customer email")
	flags.StringVar(&intentProvider, "provider", "", "Preferred provider")
	flags.StringVar(&intentReference, "reference", "", "Merchant reference")
	flags.StringVar(&intentCountry, "country", "", "ISO 3166 country code, derived from the currency when empty")
	_ = intentCreateCmd.MarkFlagRequired("amount")
	_ = intentCreateCmd.MarkFlagRequired("currency")
}

type intentSummary struct {
	ID             string                    `json:"id"`
	Status         types.IntentStatus        `json:"status"`
	Amount         int64                     `json:"amount"`
	Currency       string                    `json:"currency"`
	RecommendedPSP string                    `json:"recommended_psp,omitempty"`
	Methods        []types.Method            `json:"methods"`
	Providers      []resolver.ProviderOption `json:"providers"`
}

type intentCreator interface {
	CreatePaymentIntent(ctx context.Context, cfg types.CheckoutConfig, opts api.CreateOptions) (*api.IntentResponse, error)
}

func createIntent(ctx context.Context, client intentCreator, cfg types.CheckoutConfig, out io.Writer) error {
	opts := api.CreateOptions{Country: cfg.Country}
	if len(cfg.Methods) == 1 {
		opts.Method = cfg.Methods[0]
	}
	if cfg.PreferredProvider != "" {
		opts.Policy = &api.Policy{Prefer: cfg.PreferredProvider}
	}

	resp, err := client.CreatePaymentIntent(ctx, cfg, opts)
	if err != nil {
		return err
	}
	intent := api.IntentFromResponse(resp, cfg.Methods)
	providers := resolver.ResolveProviders(intent, cfg.Methods)
	if len(providers) == 0 {
		return errors.New("no provider offers the requested methods")
	}

	return printJSON(out, &intentSummary{
		ID:             intent.ID,
		Status:         intent.Status,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		RecommendedPSP: intent.RecommendedPSP,
		Methods:        intent.AvailableMethods,
		Providers:      providers,
	})
}

func printJSON(out io.Writer, v any) error {
	if out == nil {
		out = os.Stdout
	}
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(encoded))
	return err
}

func runJob(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return err
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Debug("job_completed")
	return nil
}
