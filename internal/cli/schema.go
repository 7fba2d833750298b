// Package cli wires configuration, storage and services into the mentord
// commands.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const schemaFlag = "help-json"

// FlagSchema describes one command flag.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Inherited   bool   `json:"inherited,omitempty"`
}

// CommandSchema describes a command and its subcommands.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Runnable    bool            `json:"runnable"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// Describe builds the schema of cmd and every visible subcommand.
func Describe(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Aliases:     cmd.Aliases,
		Description: cmd.Short,
		Long:        cmd.Long,
		Runnable:    cmd.Runnable(),
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == schemaFlag || f.Name == "help" {
			return
		}
		schema.Flags = append(schema.Flags, describeFlag(f, false))
	})
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == schemaFlag {
			return
		}
		schema.Flags = append(schema.Flags, describeFlag(f, true))
	})

	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, Describe(sub))
	}
	return schema
}

func describeFlag(f *pflag.Flag, inherited bool) FlagSchema {
	_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
	return FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
		Required:    required,
		Inherited:   inherited,
	}
}

// AddSchemaFlag registers --help-json on root and all its children.
func AddSchemaFlag(root *cobra.Command) {
	root.PersistentFlags().Bool(schemaFlag, false, "Output command schema as JSON")
}

// WriteSchemaIfRequested looks for --help-json in args (without the program
// name). When present it writes the schema of the addressed command to w and
// returns true. It runs before Execute so positional argument validation does
// not reject the request.
func WriteSchemaIfRequested(root *cobra.Command, args []string, w io.Writer) (bool, error) {
	for i, arg := range args {
		if arg != "--"+schemaFlag {
			continue
		}
		target := resolve(root, args[:i])
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(Describe(target))
	}
	return false, nil
}

func resolve(cmd *cobra.Command, path []string) *cobra.Command {
	for _, name := range path {
		next := findChild(cmd, name)
		if next == nil {
			break
		}
		cmd = next
	}
	return cmd
}

func findChild(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name || sub.HasAlias(name) {
			return sub
		}
	}
	return nil
}

// RootCmd assembles the mentord command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mentord",
		Short:         "Study mentor daemon and admin CLI",
		Long:          "mentord serves the study mentor API and manages its knowledge and chat stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddSchemaFlag(root)
	root.AddCommand(ServeCmd())
	root.AddCommand(KnowledgeCmd())
	root.AddCommand(ChatsCmd())

	return root
}
