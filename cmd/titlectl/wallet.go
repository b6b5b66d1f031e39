package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"

	"titlechain/internal/wallet"
)

func newWalletCmd() *cobra.Command {
	var keyHex string
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Create a local wallet key and sign sign-in challenges",
	}
	cmd.PersistentFlags().StringVar(&keyHex, "wallet-key", os.Getenv("TITLECHAIN_WALLET_KEY"), "secp256k1 private key (hex)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "new",
			Short: "Generate a wallet key and print its address",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				key, err := secp256k1.GeneratePrivateKey()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "TITLECHAIN_WALLET_KEY=%s\n", hex.EncodeToString(key.Serialize()))
				fmt.Fprintf(out, "# address %s\n", wallet.AddressOf(key.PubKey()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "address",
			Short: "Print the address of --wallet-key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				key, err := parseWalletKey(keyHex)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), wallet.AddressOf(key.PubKey()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "sign [message]",
			Short: "personal_sign a challenge message (read from stdin when omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := parseWalletKey(keyHex)
				if err != nil {
					return err
				}
				var message string
				if len(args) == 1 {
					message = args[0]
				} else {
					raw, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return err
					}
					message = strings.TrimSuffix(string(raw), "\n")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "0x"+hex.EncodeToString(wallet.SignPersonal(key, message)))
				return nil
			},
		},
	)
	return cmd
}

func parseWalletKey(raw string) (*secp256k1.PrivateKey, error) {
	if raw == "" {
		return nil, errors.New("no wallet key: pass --wallet-key (see titlectl wallet new)")
	}
	b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil || len(b) != secp256k1.PrivKeyBytesLen {
		return nil, errors.New("wallet key must be 32 hex-encoded bytes")
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}
