package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// ChatsCmd returns the chats command group.
func ChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Inspect stored chat threads",
	}

	cmd.AddCommand(chatsListCmd())
	cmd.AddCommand(chatsDeleteCmd())

	return cmd
}

func chatsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <userId>",
		Short: "List a user's chats, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := adminApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			outputFormat, _ := cmd.Flags().GetString("output")
			return printChats(cmd, app, args[0], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func printChats(cmd *cobra.Command, app *App, userID, outputFormat string) error {
	chats := app.Chats.List(userID)
	out := cmd.OutOrStdout()

	if outputFormat == "json" {
		if chats == nil {
			fmt.Fprintln(out, "[]")
			return nil
		}
		jsonBytes, err := json.MarshalIndent(chats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(jsonBytes))
		return nil
	}

	if len(chats) == 0 {
		fmt.Fprintf(out, "No chats for %s\n", userID)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tCREATED")
	for _, c := range chats {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", c.ID, c.Title, len(c.Messages), c.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func chatsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <userId> <chatId>",
		Short: "Delete one chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := adminApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Chats.Delete(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chat %s deleted\n", args[1])
			return nil
		},
	}
}
