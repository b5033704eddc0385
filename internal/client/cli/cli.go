// Package cli implements the commands of the schulmanager client binary.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/iudanet/schulmanager/internal/client/api"
	"github.com/iudanet/schulmanager/internal/client/bundle"
	"github.com/iudanet/schulmanager/internal/client/router"
	"github.com/iudanet/schulmanager/internal/client/storage"
	"github.com/iudanet/schulmanager/internal/models"
)

// PasswordEnvVar is consulted before any interactive prompt.
const PasswordEnvVar = "SCHULMANAGER_PASSWORD"

// Options carries the flag-level configuration of the client binary.
type Options struct {
	Email      string
	Password   string // from --password; env var and prompt take over when empty
	WeeksAhead int
	Interval   time.Duration
}

// ClientStorage is the persistence surface the commands need. The BoltDB
// driver satisfies it.
type ClientStorage interface {
	storage.StateStorage
	storage.SnapshotStorage
}

// Cli wires the commands to their collaborators.
type Cli struct {
	apiClient api.ClientAPI
	bundles   bundle.Provider
	store     ClientStorage
	opts      Options
}

// New creates the command dispatcher.
func New(apiClient api.ClientAPI, bundles bundle.Provider, store ClientStorage, opts Options) *Cli {
	return &Cli{
		apiClient: apiClient,
		bundles:   bundles,
		store:     store,
		opts:      opts,
	}
}

// PrintUsage prints the top-level help text.
func PrintUsage() {
	fmt.Println("Schulmanager Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  schulmanager [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version             Show version information")
	fmt.Println("  --server URL          Portal base URL (default: https://login.schulmanager-online.de)")
	fmt.Println("  --db PATH             Path to local database (default: schulmanager-client.db)")
	fmt.Println("  --email ADDRESS       Account email or username")
	fmt.Println("  --password PASSWORD   Account password (not recommended, use env var or prompt)")
	fmt.Println("  --weeks N             Weeks of schedule to fetch ahead (default: 2)")
	fmt.Println("  --interval DURATION   Poll interval for watch (default: 15m)")
	fmt.Println("  --bundle-version V    Pin the portal bundle version instead of detecting it")
	fmt.Println()
	fmt.Println("Password Priority (highest to lowest):")
	fmt.Println("  1. SCHULMANAGER_PASSWORD environment variable")
	fmt.Println("  2. --password (command line)")
	fmt.Println("  3. Interactive prompt")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login      Authenticate, discover institutions and persist them")
	fmt.Println("  subjects   List the students known for the account")
	fmt.Println("  poll       Run one poll cycle for every student")
	fmt.Println("  watch      Poll continuously until interrupted")
	fmt.Println("  logout     Remove stored account state and snapshots")
}

// credentials resolves the account credentials from flags, environment and
// interactive prompts.
func (c *Cli) credentials(storedIdentifier string) (models.Credential, error) {
	identifier := c.opts.Email
	if identifier == "" {
		identifier = storedIdentifier
	}
	if identifier == "" {
		var err error
		identifier, err = readInput("Email or username: ")
		if err != nil {
			return models.Credential{}, fmt.Errorf("failed to read identifier: %w", err)
		}
	}
	if identifier == "" {
		return models.Credential{}, fmt.Errorf("identifier cannot be empty")
	}

	password := os.Getenv(PasswordEnvVar)
	if password == "" {
		password = c.opts.Password
	}
	if password == "" {
		var err error
		password, err = readPassword("Password: ")
		if err != nil {
			return models.Credential{}, fmt.Errorf("failed to read password: %w", err)
		}
	}
	if password == "" {
		return models.Credential{}, fmt.Errorf("password cannot be empty")
	}

	return models.Credential{Identifier: identifier, Secret: password}, nil
}

// newRouter builds an unrouted router for the given credentials.
func (c *Cli) newRouter(creds models.Credential) *router.Router {
	return router.New(c.apiClient, c.bundles, creds)
}

func readInput(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword reads a password without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}
