// Package cli implements agencyctl, the command-line client for agencyd.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/studio-league/internal/client"
)

// DefaultServer is the agencyd address used when none is configured.
const DefaultServer = "http://localhost:8080"

// app carries the per-invocation settings shared by every subcommand.
type app struct {
	v *viper.Viper
}

// NewRootCommand builds the agencyctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "agencyctl",
		Short: "Command-line client for the Studio League engine",
		Long: `agencyctl talks to a running agencyd over its HTTP API.
Students use it to vote, hire, challenge and run covert operations;
instructors use it, with the admin key, to grade and settle weeks.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	// Global flags
	root.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/agencyctl/config.yaml)")
	root.PersistentFlags().String("server", DefaultServer, "agencyd base URL")
	root.PersistentFlags().String("admin-key", "", "instructor bearer token")
	root.PersistentFlags().Bool("json", false, "print raw JSON responses")
	_ = a.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = a.v.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	_ = a.v.BindPFlag("admin_key", root.PersistentFlags().Lookup("admin-key"))
	_ = a.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(
		a.statusCmd(),
		a.agenciesCmd(),
		a.agencyCmd(),
		a.eventsCmd(),
		a.mercatoCmd(),
		a.voteCmd(),
		a.rejectCmd(),
		a.challengeCmd(),
		a.reviewCmd(),
		a.mergerCmd(),
		a.covertCmd(),
		a.blackopCmd(),
		a.gradeCmd(),
		a.settleCmd(),
	)
	return root
}

// Execute runs agencyctl against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) initConfig() error {
	a.v.SetDefault("server", DefaultServer)

	if cfgFile := a.v.GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "agencyctl"))
		}
		a.v.AddConfigPath(".")
	}

	a.v.SetEnvPrefix("AGENCYCTL")
	// AGENCYCTL_ADMIN_KEY for admin_key
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.v.GetString("config") != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) client() *client.Client {
	return client.New(strings.TrimRight(a.v.GetString("server"), "/"), a.v.GetString("admin_key"))
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (a *app) print(w io.Writer, v any, text func(io.Writer)) error {
	if a.v.GetBool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
