package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	stickersCmd.AddCommand(stickersSendCmd, stickersCostsCmd)
	rootCmd.AddCommand(stickersCmd)
}

var stickersCmd = &cobra.Command{
	Use:   "stickers",
	Short: "Sticker catalog, sending and spend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var entries []struct {
			StickerID string  `json:"stickerId"`
			Image     string  `json:"image"`
			UnitCost  float64 `json:"unitCost"`
		}
		if err := getJSON("/api/stickers", nil, &entries); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(entries)
		}
		for _, e := range entries {
			fmt.Printf("%s  %-24s  $%.2f\n", e.StickerID, e.Image, e.UnitCost)
		}
		return nil
	},
}

var stickersSendCmd = &cobra.Command{
	Use:   "send <chat-id> <sticker-id>",
	Short: "Send a sticker message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{"stickerId": args[1]}
		var msg messageRow
		if err := postJSON("/api/chats/"+args[0]+"/stickers", nil, body, &msg); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(msg)
		}
		fmt.Printf("Sent sticker %s as %s\n", args[1], msg.ID)
		return nil
	},
}

var stickersCostsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show accumulated sticker spend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var report struct {
			Lines []struct {
				StickerID string  `json:"stickerId"`
				Count     int     `json:"count"`
				UnitCost  float64 `json:"unitCost"`
				TotalCost float64 `json:"totalCost"`
			} `json:"lines"`
			GrandTotal float64 `json:"grandTotal"`
		}
		if err := getJSON("/api/stickers/costs", nil, &report); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(report)
		}
		if len(report.Lines) == 0 {
			fmt.Println("No stickers sent yet.")
			return nil
		}
		for _, l := range report.Lines {
			fmt.Printf("%s  x%-4d  $%.2f each  $%.2f\n", l.StickerID, l.Count, l.UnitCost, l.TotalCost)
		}
		fmt.Printf("Total: $%.2f\n", report.GrandTotal)
		return nil
	},
}
