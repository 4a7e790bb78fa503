package main

import (
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/hyperx/internal/app"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	flagAsset     = "asset"
	flagAmount    = "amount"
	flagAddress   = "address"
	flagFrom      = "from"
	flagTo        = "to"
	flagRecipient = "recipient"
	flagYes       = "yes"
)

// resume restores the stored session and returns its subject id.
func (state *cli) resume(cmd *cobra.Command) (string, error) {
	outcome := state.application.Resume(cmd.Context())
	if outcome.Session.SubjectID == "" {
		if outcome.Err != nil {
			return "", fmt.Errorf("%w: %v", app.ErrNotSignedIn, outcome.Err)
		}
		return "", app.ErrNotSignedIn
	}
	return outcome.Session.SubjectID, nil
}

func amountFlag(cmd *cobra.Command) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(flagAmount)
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", flagAmount, raw, err)
	}
	return amount, nil
}

type balancesView struct {
	Total  decimal.Decimal       `json:"total"`
	Assets []wallet.AssetBalance `json:"assets"`
}

func newBalancesCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show per-asset balances and the total portfolio value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := state.resume(cmd); err != nil {
				return err
			}
			engine := state.application.Wallet
			return printJSON(cmd, balancesView{Total: engine.TotalBalance(), Assets: engine.Assets()})
		},
	}
}

func newHistoryCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the transaction history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := state.resume(cmd); err != nil {
				return err
			}
			return printJSON(cmd, state.application.Wallet.Transactions())
		},
	}
}

func newSendCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an asset to an external address",
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := state.resume(cmd)
			if err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			asset, _ := cmd.Flags().GetString(flagAsset)
			address, _ := cmd.Flags().GetString(flagAddress)
			return succeeded(state.application.Wallet.Send(cmd.Context(), subjectID, asset, amount, address))
		},
	}
	cmd.Flags().String(flagAsset, "", "asset id (e.g. eth_sepolia)")
	cmd.Flags().String(flagAmount, "", "amount in asset units")
	cmd.Flags().String(flagAddress, "", "destination address")
	return cmd
}

func newSwapCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote a swap and execute it with --yes",
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := state.resume(cmd)
			if err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetString(flagFrom)
			to, _ := cmd.Flags().GetString(flagTo)
			quote, err := state.application.Wallet.SwapQuote(cmd.Context(), from, to, amount)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, quote); err != nil {
				return err
			}
			if confirmed, _ := cmd.Flags().GetBool(flagYes); !confirmed {
				return nil
			}
			return succeeded(state.application.Wallet.ExecuteSwap(cmd.Context(), subjectID, quote))
		},
	}
	cmd.Flags().String(flagFrom, "", "asset id to sell")
	cmd.Flags().String(flagTo, "", "asset id to buy")
	cmd.Flags().String(flagAmount, "", "amount of the sold asset")
	cmd.Flags().Bool(flagYes, false, "execute the quoted swap")
	return cmd
}

func newConvertCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between assets at reference prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := state.resume(cmd)
			if err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetString(flagFrom)
			to, _ := cmd.Flags().GetString(flagTo)
			return succeeded(state.application.Wallet.Convert(cmd.Context(), subjectID, from, to, amount))
		},
	}
	cmd.Flags().String(flagFrom, "", "asset id to sell")
	cmd.Flags().String(flagTo, "", "asset id to buy")
	cmd.Flags().String(flagAmount, "", "amount of the sold asset")
	return cmd
}

func newReceiveCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Show the deposit address of an asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := state.resume(cmd)
			if err != nil {
				return err
			}
			asset, _ := cmd.Flags().GetString(flagAsset)
			address, err := state.application.Wallet.DepositAddress(cmd.Context(), asset, subjectID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), address)
			return err
		},
	}
	cmd.Flags().String(flagAsset, "", "asset id (e.g. btc_testnet)")
	return cmd
}

func newTransferCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Record an internal transfer to another user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := state.resume(cmd); err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			asset, _ := cmd.Flags().GetString(flagAsset)
			recipient, _ := cmd.Flags().GetString(flagRecipient)
			return succeeded(state.application.Wallet.InternalTransfer(cmd.Context(), asset, amount, recipient))
		},
	}
	cmd.Flags().String(flagAsset, "", "asset id")
	cmd.Flags().String(flagAmount, "", "amount in asset units")
	cmd.Flags().String(flagRecipient, "", "recipient username or email")
	return cmd
}

func newDepositCommand(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Record an incoming deposit locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := state.resume(cmd); err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			asset, _ := cmd.Flags().GetString(flagAsset)
			from, _ := cmd.Flags().GetString(flagFrom)
			return succeeded(state.application.Wallet.LocalReceive(cmd.Context(), asset, amount, from))
		},
	}
	cmd.Flags().String(flagAsset, "", "asset id")
	cmd.Flags().String(flagAmount, "", "amount in asset units")
	cmd.Flags().String(flagFrom, "", "sender address")
	return cmd
}
