package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"subledger/core/types"
	"subledger/native/subscription"
)

var (
	creatorKey  = types.Pubkey{0x11}
	creatorAcct = types.Pubkey{0x12}
	paytoKey    = types.Pubkey{0x13}
	userKey     = types.Pubkey{0x21}
	userAcct    = types.Pubkey{0x22}
)

func useTempLedger(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "subledger.toml")
	contents := fmt.Sprintf("DataDir = %q\n\n[log]\nFile = %q\n", filepath.Join(dir, "data"), filepath.Join(dir, "cli.log"))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	previous := configPath
	configPath = path
	t.Cleanup(func() { configPath = previous })
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := runCLI(t, args...)
	require.Zerof(t, code, "%v failed: %s", args, stderr)
	return stdout
}

func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.yaml")
	contents := `name: Creator
plans:
  - name: Mini
    price: 1000
    image: https://x/1
  - name: Midi
    price: 100000
    image: https://x/2
  - name: Maxi
    price: 10000000
    image: https://x/3
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func publishCatalog(t *testing.T, dir string) {
	t.Helper()
	mustRun(t, "airdrop", "--to", creatorKey.String(), "--lamports", "2000000000")
	mustRun(t, "airdrop", "--to", userKey.String(), "--lamports", "2000000000")
	mustRun(t, "create-creator",
		"--catalog", writeCatalog(t, dir),
		"--account", creatorAcct.String(),
		"--signer", creatorKey.String(),
		"--payto", paytoKey.String())
	mustRun(t, "create-user", "--account", userAcct.String(), "--owner", userKey.String())
}

func TestUsage(t *testing.T) {
	stdout, _, code := runCLI(t)
	require.Zero(t, code)
	require.Contains(t, stdout, "Usage: subledger-cli")

	_, stderr, code := runCLI(t, "bogus")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Unknown command: bogus")

	_, stderr, code = runCLI(t, "--config")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "missing value for --config")
}

func TestGenerateKeyPrintsAddress(t *testing.T) {
	stdout := mustRun(t, "generate-key")
	key, err := types.ParsePubkey(strings.TrimSpace(stdout))
	require.NoError(t, err)
	require.False(t, key.IsZero())
}

func TestMarketplaceThroughCLI(t *testing.T) {
	dir := useTempLedger(t)
	publishCatalog(t, dir)

	out := mustRun(t, "creator", creatorAcct.String())
	var catalog subscription.CreatorAccount
	require.NoError(t, json.Unmarshal([]byte(out), &catalog))
	require.Equal(t, "Creator", catalog.Name)
	require.Len(t, catalog.Plans, 3)
	require.Equal(t, paytoKey, catalog.Payto)

	out = mustRun(t, "purchase",
		"--user", userAcct.String(),
		"--creator", creatorAcct.String(),
		"--payto", paytoKey.String(),
		"--signer", userKey.String(),
		"--amount", "100000",
		"--option", "2")
	require.Contains(t, out, "Successfully added subscription level 2 to the account!")

	out = mustRun(t, "balance", paytoKey.String())
	require.Contains(t, out, "100000 lamports")
	require.Contains(t, out, "0.0001 SOL")

	out = mustRun(t, "link", "--user", userAcct.String(), "--index", "1")
	require.Equal(t, "https://x/2", strings.TrimSpace(out))

	out = mustRun(t, "subscriptions", "--user", userAcct.String())
	var views []subscription.SubscriptionView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	require.Equal(t, "Midi", views[0].Name)
	require.Contains(t, []int64{29, 30}, views[0].DaysLeft)
}

func TestPurchaseFailureReportsProgramError(t *testing.T) {
	dir := useTempLedger(t)
	publishCatalog(t, dir)

	_, stderr, code := runCLI(t, "purchase",
		"--user", userAcct.String(),
		"--creator", creatorAcct.String(),
		"--payto", paytoKey.String(),
		"--signer", userKey.String(),
		"--amount", "99",
		"--option", "2")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Wrong amount of SOL! (InvalidAmountOfSol, code 6000)")

	out := mustRun(t, "balance", paytoKey.String())
	require.Contains(t, out, ": 0 lamports")

	_, stderr, code = runCLI(t, "link", "--user", userAcct.String(), "--index", "1")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "code 6001")
}

func TestFlagValidation(t *testing.T) {
	useTempLedger(t)

	_, stderr, code := runCLI(t, "airdrop", "--lamports", "5")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "--to is required")

	_, stderr, code = runCLI(t, "purchase",
		"--user", userAcct.String(),
		"--creator", creatorAcct.String(),
		"--payto", paytoKey.String(),
		"--signer", userKey.String(),
		"--option", "0")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "--option must be between 1 and 255")

	for i := 0; i < 5; i++ {
		_, stderr, code = runCLI(t, "purchase", "--amount", "1", "--option", "1")
		require.Equal(t, 1, code)
		require.Equal(t, "Error: --user is required\n", stderr)
	}

	_, stderr, code = runCLI(t, "balance", "not-a-key")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "invalid address")

	_, stderr, code = runCLI(t, "create-creator",
		"--account", creatorAcct.String(),
		"--signer", creatorKey.String(),
		"--payto", paytoKey.String())
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "--catalog is required")
}
