package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var configPath = defaultConfigPath()

func defaultConfigPath() string {
	if path := strings.TrimSpace(os.Getenv("SUBLEDGER_CONFIG")); path != "" {
		return path
	}
	return "subledger.toml"
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		printUsage(stdout)
		return 0
	}

	command, rest := args[0], args[1:]
	switch command {
	case "generate-key":
		return runGenerateKey(rest, stdout, stderr)
	case "airdrop":
		return runAirdrop(rest, stdout, stderr)
	case "balance":
		return runBalance(rest, stdout, stderr)
	case "create-creator":
		return runCreateCreator(rest, stdout, stderr)
	case "create-user":
		return runCreateUser(rest, stdout, stderr)
	case "purchase":
		return runPurchase(rest, stdout, stderr)
	case "link":
		return runLink(rest, stdout, stderr)
	case "subscriptions":
		return runSubscriptions(rest, stdout, stderr)
	case "creator":
		return runShowCreator(rest, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			configPath = strings.TrimPrefix(arg, "--config=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: subledger-cli [--config path] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Signatures are declared, not verified: --signer and --account name the keys that authorise")
	fmt.Fprintln(w, "a transaction on the local ledger.")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate-key                        - Prints a fresh random account address")
	fmt.Fprintln(w, "  airdrop --to KEY --lamports N        - Credits lamports from the local faucet")
	fmt.Fprintln(w, "  balance KEY                         - Prints an account balance in lamports and SOL")
	fmt.Fprintln(w, "  create-creator --catalog FILE ...   - Publishes a creator catalog from a YAML file")
	fmt.Fprintln(w, "  create-user --owner KEY --account KEY")
	fmt.Fprintln(w, "                                      - Allocates a user account")
	fmt.Fprintln(w, "  purchase ...                        - Buys a plan (1-based --option) for a user account")
	fmt.Fprintln(w, "  link --user KEY --index N           - Prints the link of the N-th purchase (1-based)")
	fmt.Fprintln(w, "  subscriptions --user KEY            - Lists the purchases on a user account")
	fmt.Fprintln(w, "  creator KEY                         - Prints a creator catalog")
}
