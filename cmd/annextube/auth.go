package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"annextube/internal/exitcode"
	"annextube/pkg/auth"
	"annextube/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored API keys",
	Long: `Manage stored API keys securely.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - ANNEXTUBE_API_KEY environment variable (read-only)`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store an API key securely",
	Long: `Store an API key in the system keychain or an encrypted file.

With no argument the "default" profile is used. The key is read from the
terminal without echo.`,
	Example: `  # Store the default key
  annextube auth login

  # Store a key under a named profile
  annextube auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:     "logout [profile]",
	Aliases: []string{"remove"},
	Short:   "Remove a stored API key",
	Args:    cobra.MaximumNArgs(1),
	Run:     runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored API key profiles",
	Long:  `List stored API key profiles with the key values masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(exitcode.Fatal)
	}

	profile := auth.DefaultProfile
	if len(args) > 0 {
		profile = strings.TrimSpace(args[0])
	}

	reader := bufio.NewReader(os.Stdin)
	if existing, _ := manager.Retrieve(profile); existing != nil {
		fmt.Printf("Profile %q already exists. Replace it? (y/N): ", profile)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("API key (input hidden): ")
	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		ui.PrintError("Failed to read API key", err.Error())
		os.Exit(exitcode.Fatal)
	}

	key := strings.TrimSpace(string(keyBytes))
	if key == "" {
		ui.PrintError("API key is required", "")
		os.Exit(exitcode.Fatal)
	}

	if err := manager.Save(&auth.Credential{Profile: profile, APIKey: key}); err != nil {
		ui.PrintError("Failed to store API key", err.Error())
		os.Exit(exitcode.Fatal)
	}
	ui.PrintSuccess(fmt.Sprintf("API key stored for profile %q", profile))
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(exitcode.Fatal)
	}

	profile := auth.DefaultProfile
	if len(args) > 0 {
		profile = strings.TrimSpace(args[0])
	}

	if err := manager.Delete(profile); err != nil {
		ui.PrintError("Failed to remove API key", err.Error())
		os.Exit(exitcode.Fatal)
	}
	ui.PrintSuccess(fmt.Sprintf("Removed API key for profile %q", profile))
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(exitcode.Fatal)
	}

	creds, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list API keys", err.Error())
		os.Exit(exitcode.Fatal)
	}
	if len(creds) == 0 {
		fmt.Println("No stored API keys. Run 'annextube auth login' to add one.")
		return
	}

	for _, cred := range creds {
		clean := auth.Sanitize(cred)
		ui.PrintInfo(clean.Profile, fmt.Sprintf("%s (modified %s)", clean.APIKey,
			clean.LastModified.Format("2006-01-02 15:04")))
	}
}
