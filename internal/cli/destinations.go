package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pricebot/internal/storage"
)

var destinationsCmd = &cobra.Command{
	Use:     "destinations",
	Aliases: []string{"groups"},
	Short:   "Manage the chats that receive alerts",
}

var (
	destID   int64
	destName string
)

var destinationsAddCmd = &cobra.Command{
	Use:   "add [chat id] [name...]",
	Short: "Register a chat",
	Long: "Register a chat. Group ids are negative, so pass them with --id or after \"--\";\n" +
		"a bare -100... argument would be read as a flag.",
	Example: "  pricebot destinations add --id -1001234567890 --name \"Flower Club\"\n" +
		"  pricebot destinations add -- -1001234567890 Flower Club",
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := destinationFromInput(cmd, args)
		if err != nil {
			return err
		}
		return getApp().AddDestination(cmd.Context(), dest)
	},
}

var destinationsRemoveCmd = &cobra.Command{
	Use:     "remove [chat id]",
	Short:   "Unregister a chat",
	Example: "  pricebot destinations remove --id -1001234567890\n  pricebot destinations remove -- -1001234567890",
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := destinationFromInput(cmd, args)
		if err != nil {
			return err
		}
		return getApp().RemoveDestination(cmd.Context(), dest.ID)
	},
}

// destinationFromInput reads the chat from --id/--name, falling back to
// positional "<id> [name...]".
func destinationFromInput(cmd *cobra.Command, args []string) (storage.Destination, error) {
	name := destName
	if cmd.Flags().Changed("id") {
		if destID == 0 {
			return storage.Destination{}, fmt.Errorf("invalid chat id 0")
		}
		if name == "" {
			name = strings.Join(args, " ")
		}
		return storage.Destination{ID: destID, Name: name}, nil
	}
	if len(args) == 0 {
		return storage.Destination{}, fmt.Errorf("chat id required: use --id <id> or -- <id>")
	}
	id, err := parseChatID(args[0])
	if err != nil {
		return storage.Destination{}, err
	}
	if name == "" {
		name = strings.Join(args[1:], " ")
	}
	return storage.Destination{ID: id, Name: name}, nil
}

var destinationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered chats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListDestinations(cmd.Context(), cmd.OutOrStdout())
	},
}

func parseChatID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid chat id %q", raw)
	}
	return id, nil
}

func init() {
	destinationsAddCmd.Flags().Int64Var(&destID, "id", 0, "Chat id (negative for groups)")
	destinationsAddCmd.Flags().StringVar(&destName, "name", "", "Display name")
	destinationsRemoveCmd.Flags().Int64Var(&destID, "id", 0, "Chat id (negative for groups)")

	destinationsCmd.AddCommand(destinationsAddCmd, destinationsRemoveCmd, destinationsListCmd)
}
