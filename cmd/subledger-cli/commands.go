package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"subledger/core/runtime"
	"subledger/core/types"
	"subledger/native/subscription"
)

type keyFlag struct {
	key types.Pubkey
	set bool
}

func (k *keyFlag) String() string {
	if !k.set {
		return ""
	}
	return k.key.String()
}

func (k *keyFlag) Set(value string) error {
	key, err := types.ParsePubkey(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	k.key, k.set = key, true
	return nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

type namedKey struct {
	name string
	key  *keyFlag
}

// requireKeys reports the first unset key flag in the order given.
func requireKeys(stderr io.Writer, keys ...namedKey) bool {
	for _, k := range keys {
		if !k.key.set {
			fmt.Fprintf(stderr, "Error: --%s is required\n", k.name)
			return false
		}
	}
	return true
}

// withSession opens the ledger, runs fn and reports its error.
func withSession(stderr io.Writer, fn func(ctx context.Context, s *session) error) int {
	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	runErr := fn(ctx, s)
	if err := s.close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %s\n", describe(runErr))
		return 1
	}
	return 0
}

func describe(err error) string {
	if perr, ok := subscription.AsError(err); ok {
		return fmt.Sprintf("%s (%s, code %d)", perr.Message(), perr.Name(), perr.Code())
	}
	return err.Error()
}

func writeJSON(w io.Writer, v any) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%v\n", v)
		return
	}
	fmt.Fprintln(w, string(encoded))
}

func writeReceipt(w io.Writer, receipt *runtime.Receipt) {
	writeJSON(w, struct {
		Signature string   `json:"signature"`
		Slot      uint64   `json:"slot"`
		Logs      []string `json:"logs"`
	}{receipt.Signature, receipt.Slot, receipt.Logs})
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintln(stderr, "Error: generate-key takes no arguments")
		return 1
	}
	var key types.Pubkey
	if _, err := rand.Read(key[:]); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.String())
	return 0
}

func runAirdrop(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("airdrop", stderr)
	var to keyFlag
	var lamports uint64
	fs.Var(&to, "to", "account credited")
	fs.Uint64Var(&lamports, "lamports", 0, "amount to credit")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireKeys(stderr, namedKey{"to", &to}) {
		return 1
	}
	if lamports == 0 {
		fmt.Fprintln(stderr, "Error: --lamports must be positive")
		return 1
	}
	return withSession(stderr, func(ctx context.Context, s *session) error {
		receipt, err := s.processor.Airdrop(ctx, to.key, lamports)
		if err != nil {
			return err
		}
		writeReceipt(stdout, receipt)
		return nil
	})
}

func runBalance(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Error: Please provide an address.")
		return 1
	}
	key, err := types.ParsePubkey(strings.TrimSpace(args[0]))
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid address: %v\n", err)
		return 1
	}
	return withSession(stderr, func(ctx context.Context, s *session) error {
		lamports, err := s.processor.Balance(ctx, key)
		if err != nil {
			return err
		}
		sol := decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
		fmt.Fprintf(stdout, "%s: %d lamports (%s SOL)\n", key, lamports, sol.String())
		return nil
	})
}

func runCreateCreator(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("create-creator", stderr)
	var account, signer, payto keyFlag
	var catalogPath string
	fs.Var(&account, "account", "fresh address for the creator account")
	fs.Var(&signer, "signer", "creator key paying the rent")
	fs.Var(&payto, "payto", "account receiving purchase payments")
	fs.StringVar(&catalogPath, "catalog", "", "YAML catalog file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireKeys(stderr, namedKey{"account", &account}, namedKey{"signer", &signer}, namedKey{"payto", &payto}) {
		return 1
	}
	if strings.TrimSpace(catalogPath) == "" {
		fmt.Fprintln(stderr, "Error: --catalog is required")
		return 1
	}
	catalog, err := loadCatalog(catalogPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	prices, names, images := catalog.columns()
	ix, err := subscription.NewCreateCreatorAccountInstruction(subscription.ProgramID, account.key, signer.key, payto.key, catalog.Name, prices, names, images)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return submit(stdout, stderr, signer.key, []types.Pubkey{account.key}, ix)
}

func runCreateUser(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("create-user", stderr)
	var account, owner keyFlag
	fs.Var(&account, "account", "fresh address for the user account")
	fs.Var(&owner, "owner", "user key paying the rent")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireKeys(stderr, namedKey{"account", &account}, namedKey{"owner", &owner}) {
		return 1
	}
	ix := subscription.NewCreateUserAccountInstruction(subscription.ProgramID, account.key, owner.key)
	return submit(stdout, stderr, owner.key, []types.Pubkey{account.key}, ix)
}

func runPurchase(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("purchase", stderr)
	var user, creator, payto, signer keyFlag
	var amount uint64
	var option uint
	fs.Var(&user, "user", "user account recording the purchase")
	fs.Var(&creator, "creator", "creator account selling the plan")
	fs.Var(&payto, "payto", "creator payout account")
	fs.Var(&signer, "signer", "key paying for the plan")
	fs.Uint64Var(&amount, "amount", 0, "exact plan price in lamports")
	fs.UintVar(&option, "option", 0, "plan number, starting from 1")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireKeys(stderr, namedKey{"user", &user}, namedKey{"creator", &creator}, namedKey{"payto", &payto}, namedKey{"signer", &signer}) {
		return 1
	}
	if option == 0 || option > 255 {
		fmt.Fprintln(stderr, "Error: --option must be between 1 and 255")
		return 1
	}
	ix, err := subscription.NewPurchaseSubscriptionInstruction(subscription.ProgramID, payto.key, creator.key, user.key, signer.key, amount, uint8(option))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return submit(stdout, stderr, signer.key, nil, ix)
}

func runLink(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("link", stderr)
	var user keyFlag
	var index uint
	fs.Var(&user, "user", "user account")
	fs.UintVar(&index, "index", 0, "purchase number, starting from 1")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireKeys(stderr, namedKey{"user", &user}) {
		return 1
	}
	if index > 255 {
		fmt.Fprintln(stderr, "Error: --index must be at most 255")
		return 1
	}
	ix, err := subscription.NewGetSubscriptionLinkInstruction(subscription.ProgramID, user.key, uint8(index))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return withSession(stderr, func(ctx context.Context, s *session) error {
		receipt, err := simulate(ctx, s, user.key, ix)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(receipt.ReturnData))
		return nil
	})
}

func runSubscriptions(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("subscriptions", stderr)
	var user keyFlag
	fs.Var(&user, "user", "user account")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireKeys(stderr, namedKey{"user", &user}) {
		return 1
	}
	ix := subscription.NewLogUserSubscriptionsInstruction(subscription.ProgramID, user.key)
	return withSession(stderr, func(ctx context.Context, s *session) error {
		receipt, err := simulate(ctx, s, user.key, ix)
		if err != nil {
			return err
		}
		views, err := subscription.DecodeSubscriptionList(receipt.ReturnData)
		if err != nil {
			return err
		}
		writeJSON(stdout, views)
		return nil
	})
}

func runShowCreator(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Error: Please provide a creator account.")
		return 1
	}
	key, err := types.ParsePubkey(strings.TrimSpace(args[0]))
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid address: %v\n", err)
		return 1
	}
	return withSession(stderr, func(_ context.Context, s *session) error {
		acc, err := s.processor.Account(key)
		if err != nil {
			return err
		}
		if acc.Owner != subscription.ProgramID {
			return subscription.ErrItemDoesNotExist
		}
		record, err := subscription.DecodeCreatorAccount(acc.Data)
		if err != nil {
			return err
		}
		writeJSON(stdout, record)
		return nil
	})
}

func submit(stdout, stderr io.Writer, payer types.Pubkey, extraSigners []types.Pubkey, ix runtime.Instruction) int {
	return withSession(stderr, func(ctx context.Context, s *session) error {
		receipt, err := s.processor.Execute(ctx, &runtime.Transaction{
			FeePayer:     payer,
			Signers:      append([]types.Pubkey{payer}, extraSigners...),
			Instructions: []runtime.Instruction{ix},
		})
		if err != nil {
			var txErr *runtime.TransactionError
			if errors.As(err, &txErr) && receipt != nil {
				for _, line := range receipt.Logs {
					fmt.Fprintln(stderr, line)
				}
			}
			return err
		}
		writeReceipt(stdout, receipt)
		return nil
	})
}

// simulate runs a read-only instruction without committing a slot.
func simulate(ctx context.Context, s *session, payer types.Pubkey, ix runtime.Instruction) (*runtime.Receipt, error) {
	return s.processor.Simulate(ctx, &runtime.Transaction{
		FeePayer:     payer,
		Signers:      []types.Pubkey{payer},
		Instructions: []runtime.Instruction{ix},
	})
}
