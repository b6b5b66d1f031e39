package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"titlechain/internal/fhe"
	"titlechain/internal/fhe/proof"
	"titlechain/internal/fhe/testscheme"
)

// keyFlags are shared by every command that needs key material. Flags default to
// the same environment variables the server reads.
type keyFlags struct {
	secretKey     string
	evaluationKey string
	proofSeed     string
}

func newRootCmd() *cobra.Command {
	keys := &keyFlags{}
	root := &cobra.Command{
		Use:   "titlectl",
		Short: "Local tooling for Secure Title Chain encrypted values",
		Long: `titlectl works with the insecure test scheme locally: it generates keys,
encrypts and decrypts 32-bit values, evaluates add, sub and mul on ciphertexts,
issues or checks input proofs, and signs wallet sign-in challenges. Do not use
it with real data.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&keys.secretKey, "secret-key", os.Getenv("FHE_TEST_SECRET_KEY"), "test scheme secret key (hex)")
	root.PersistentFlags().StringVar(&keys.evaluationKey, "evaluation-key", os.Getenv("FHE_TEST_EVALUATION_KEY"), "test scheme evaluation key (hex)")
	root.PersistentFlags().StringVar(&keys.proofSeed, "proof-seed", os.Getenv("FHE_PROOF_SEED"), "proof signing seed (hex)")

	root.AddCommand(
		newKeygenCmd(),
		newEncryptCmd(keys),
		newDecryptCmd(keys),
		newEvalCmd(keys),
		newProveCmd(keys),
		newVerifyCmd(keys),
		newWalletCmd(),
	)
	return root
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a test scheme key set and a proof seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sk, err := testscheme.GenerateSecretKey()
			if err != nil {
				return err
			}
			seed, err := proof.GenerateSeed()
			if err != nil {
				return err
			}
			prover, err := proof.New(seed)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "FHE_TEST_SECRET_KEY=%s\n", sk.Hex())
			fmt.Fprintf(out, "FHE_TEST_EVALUATION_KEY=%s\n", sk.EvaluationKey().Hex())
			fmt.Fprintf(out, "FHE_PROOF_SEED=%s\n", hex.EncodeToString(seed))
			fmt.Fprintf(out, "# key id %d, proof public key %s\n", sk.EvaluationKey().KeyID(), hex.EncodeToString(prover.PublicKey()))
			return nil
		},
	}
}

func newEncryptCmd(keys *keyFlags) *cobra.Command {
	var withProof bool
	cmd := &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a value in [0, 2^32)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parsePlaintext(args[0])
			if err != nil {
				return err
			}
			provider, err := keys.provider()
			if err != nil {
				return err
			}
			c, err := provider.Encrypt(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Hex())
			if !withProof {
				return nil
			}
			prover, err := keys.prover()
			if err != nil {
				return err
			}
			p, err := prover.GenerateProof(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Hex())
			return nil
		},
	}
	cmd.Flags().BoolVar(&withProof, "proof", false, "also print an input proof for the ciphertext")
	return cmd
}

func newDecryptCmd(keys *keyFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <ciphertext>",
		Short: "Decrypt a test scheme ciphertext (needs --secret-key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := fhe.ParseCiphertextHex(args[0])
			if err != nil {
				return err
			}
			if keys.secretKey == "" {
				return errors.New("decrypt needs --secret-key or FHE_TEST_SECRET_KEY")
			}
			provider, err := keys.provider()
			if err != nil {
				return err
			}
			v, err := provider.Decrypt(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Uint64())
			return nil
		},
	}
}

func newEvalCmd(keys *keyFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <add|sub|mul> <lhs> <rhs>",
		Short: "Evaluate an operation on two ciphertexts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := fhe.ParseOp(args[0])
			if err != nil {
				return err
			}
			lhs, err := fhe.ParseCiphertextHex(args[1])
			if err != nil {
				return fmt.Errorf("lhs: %w", err)
			}
			rhs, err := fhe.ParseCiphertextHex(args[2])
			if err != nil {
				return fmt.Errorf("rhs: %w", err)
			}
			provider, err := keys.provider()
			if err != nil {
				return err
			}
			out, err := fhe.NewArithmetic(provider).Apply(cmd.Context(), op, lhs, rhs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Hex())
			return nil
		},
	}
}

func newProveCmd(keys *keyFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prove <ciphertext>",
		Short: "Issue an input proof for a ciphertext (needs --proof-seed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := fhe.ParseCiphertextHex(args[0])
			if err != nil {
				return err
			}
			prover, err := keys.prover()
			if err != nil {
				return err
			}
			p, err := prover.GenerateProof(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Hex())
			return nil
		},
	}
}

func newVerifyCmd(keys *keyFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <proof> <ciphertext>",
		Short: "Check that a proof belongs to a ciphertext (needs --proof-seed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := fhe.ParseProofHex(args[0])
			if err != nil {
				return err
			}
			c, err := fhe.ParseCiphertextHex(args[1])
			if err != nil {
				return err
			}
			prover, err := keys.prover()
			if err != nil {
				return err
			}
			ok, err := prover.VerifyProof(p, c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(ok))
			if !ok {
				return errors.New("proof does not match ciphertext")
			}
			return nil
		},
	}
}

// provider prefers the secret key, which also yields the evaluation key.
func (k *keyFlags) provider() (*testscheme.Provider, error) {
	if k.secretKey != "" {
		sk, err := testscheme.ParseSecretKey(k.secretKey)
		if err != nil {
			return nil, err
		}
		return testscheme.NewWithSecret(sk), nil
	}
	if k.evaluationKey != "" {
		ek, err := testscheme.ParseEvaluationKey(k.evaluationKey)
		if err != nil {
			return nil, err
		}
		return testscheme.New(ek), nil
	}
	return nil, errors.New("no key material: pass --secret-key or --evaluation-key (see titlectl keygen)")
}

func (k *keyFlags) prover() (*proof.Service, error) {
	if k.proofSeed == "" {
		return nil, errors.New("no proof seed: pass --proof-seed (see titlectl keygen)")
	}
	return proof.NewFromHex(k.proofSeed)
}

func parsePlaintext(s string) (fhe.Plaintext, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not an integer", s)
	}
	return fhe.NewPlaintext(n)
}
