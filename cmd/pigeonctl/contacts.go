package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func init() {
	contactsCmd.AddCommand(contactsListCmd, contactsAddCmd)
	rootCmd.AddCommand(searchCmd, contactsCmd)
}

type userRow struct {
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	WelcomeMessage string `json:"welcomeMessage"`
}

var searchCmd = &cobra.Command{
	Use:   "search <username>",
	Short: "Find accounts by exact username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var users []userRow
		q := url.Values{"username": {args[0]}}
		if err := getJSON("/api/users/search", q, &users); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(users)
		}
		if len(users) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, u := range users {
			fmt.Printf("%s  %s (@%s)\n", u.UserID, u.Name, u.Username)
		}
		return nil
	},
}

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage the contact list",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resolved contact profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var users []userRow
		if err := getJSON("/api/contacts", nil, &users); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(users)
		}
		if len(users) == 0 {
			fmt.Println("No contacts.")
			return nil
		}
		for _, u := range users {
			fmt.Printf("%s  %s (@%s)  %s\n", u.UserID, u.Name, u.Username, u.WelcomeMessage)
		}
		return nil
	},
}

var contactsAddCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Add a user to the contact list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"userId": {args[0]}}
		if err := postJSON("/api/contacts", q, nil, nil); err != nil {
			return err
		}
		fmt.Println("Contact added.")
		return nil
	},
}
