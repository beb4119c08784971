package main

import (
	"fmt"
	"os"

	"github.com/pigeonchat/pigeon/internal/config"
	"github.com/pigeonchat/pigeon/internal/profile"
	"github.com/spf13/cobra"
)

var (
	addrFlag string
	jsonFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "pigeonctl",
	Short: "Pigeon daemon CLI",
	Long:  "Command-line client for a running pigeond daemon.\nAccounts, contacts, chats, messages and sticker spend.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "daemon address (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
}

// daemonAddr resolves the daemon address: flag first, then config, then the
// built-in default.
func daemonAddr() string {
	if addrFlag != "" {
		return addrFlag
	}
	if cfg, err := config.Load(profile.ConfigPath()); err == nil && cfg.ListenAddr != "" {
		return cfg.ListenAddr
	}
	return config.Default().ListenAddr
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
