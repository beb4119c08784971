package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	signupCmd.Flags().StringVar(&signupName, "name", "", "display name")
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "email address")
	signupCmd.Flags().StringVar(&signupWelcome, "welcome", "", "welcome message")
	signupCmd.Flags().StringVar(&signupImage, "image", "", "profile image URL")
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, statusCmd)
}

var (
	signupName    string
	signupEmail   string
	signupWelcome string
	signupImage   string
)

var signupCmd = &cobra.Command{
	Use:   "signup <username> <password>",
	Short: "Register a new account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{
			"username":       args[0],
			"password":       args[1],
			"name":           signupName,
			"email":          signupEmail,
			"welcomeMessage": signupWelcome,
			"imageUrl":       signupImage,
		}
		var resp struct {
			UserID string `json:"userId"`
		}
		if err := postJSON("/api/signup", nil, body, &resp); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(resp)
		}
		fmt.Printf("Registered. User ID: %s\n", resp.UserID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "Sign in to the daemon",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{"username": args[0], "password": args[1]}
		var resp struct {
			UserID string `json:"userId"`
		}
		if err := postJSON("/api/login", nil, body, &resp); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(resp)
		}
		fmt.Printf("Signed in as %s (%s)\n", args[0], resp.UserID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := postJSON("/api/logout", nil, nil, nil); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon session status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			State  string `json:"state"`
			UserID string `json:"userId"`
		}
		if err := getJSON("/api/status", nil, &resp); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(resp)
		}
		fmt.Printf("State:   %s\n", resp.State)
		if resp.UserID != "" {
			fmt.Printf("User ID: %s\n", resp.UserID)
		}
		return nil
	},
}
