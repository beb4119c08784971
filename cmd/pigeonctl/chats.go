package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	chatCmd.Flags().StringVar(&chatInitialText, "message", "", "initial message for a new chat")
	rootCmd.AddCommand(chatsCmd, chatCmd, messagesCmd, historyCmd, sendCmd)
}

var chatInitialText string

type chatRow struct {
	ChatID      string `json:"chatId"`
	DisplayName string `json:"displayName"`
	LastMessage string `json:"lastMessage"`
	Timestamp   int64  `json:"timestamp"`
}

type messageRow struct {
	ChatID    string `json:"chatId"`
	ID        string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	StickerID string `json:"stickerId"`
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chats, newest activity first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var rows []chatRow
		if err := getJSON("/api/chats", nil, &rows); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(rows)
		}
		if len(rows) == 0 {
			fmt.Println("No chats.")
			return nil
		}
		for _, r := range rows {
			fmt.Printf("%s  %-24s  %s  %s\n", r.ChatID, r.DisplayName, formatMillis(r.Timestamp), r.LastMessage)
		}
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <user-id>...",
	Short: "Find or create the chat with the given participants",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{"participantIds": args, "initialText": chatInitialText}
		var resp struct {
			ChatID  string `json:"chatId"`
			Created bool   `json:"created"`
		}
		if err := postJSON("/api/chats", nil, body, &resp); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(resp)
		}
		if resp.Created {
			fmt.Printf("Created chat %s\n", resp.ChatID)
		} else {
			fmt.Printf("Chat exists: %s\n", resp.ChatID)
		}
		return nil
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <chat-id>",
	Short: "Show the message log of a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var msgs []messageRow
		if err := getJSON("/api/chats/"+args[0]+"/messages", nil, &msgs); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(msgs)
		}
		if len(msgs) == 0 {
			fmt.Println("No messages.")
			return nil
		}
		for _, m := range msgs {
			body := m.Text
			if m.Kind == "sticker" {
				body = fmt.Sprintf("[sticker %s]", m.StickerID)
			}
			fmt.Printf("%s  %s: %s\n", formatMillis(m.Timestamp), m.SenderID, body)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <chat-id>",
	Short: "Show the locally cached message log of a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var msgs []messageRow
		if err := getJSON("/api/chats/"+args[0]+"/history", nil, &msgs); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(msgs)
		}
		if len(msgs) == 0 {
			fmt.Println("No cached messages.")
			return nil
		}
		for _, m := range msgs {
			body := m.Text
			if m.Kind == "sticker" {
				body = fmt.Sprintf("[sticker %s]", m.StickerID)
			}
			fmt.Printf("%s  %s: %s\n", formatMillis(m.Timestamp), m.SenderID, body)
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <text>",
	Short: "Send a text message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{"text": args[1]}
		var msg messageRow
		if err := postJSON("/api/chats/"+args[0]+"/messages", nil, body, &msg); err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(msg)
		}
		fmt.Printf("Sent %s\n", msg.ID)
		return nil
	},
}
