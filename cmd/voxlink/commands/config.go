package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/voxlink/voxlink/pkg/cli"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage voxlink configuration.

Configuration is stored in ~/.voxlink/config.yaml`,
}

// contextCmd represents the context subcommand
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage contexts",
	Long:  `Manage voxlink contexts for different environments.`,
}

// contextListCmd lists all contexts
var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		names := cfg.ListContexts()
		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("\nCreate one with:")
			fmt.Println("  voxlink config context set dev --api-key=<key>")
			return nil
		}

		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tAPI_KEY\tMODEL")

		for _, name := range names {
			ctx, _ := cfg.GetContext(name)

			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}

			key := "(not set)"
			if ctx.APIKey != "" {
				key = cli.MaskAPIKey(ctx.APIKey)
			}

			model := ctx.Model
			if model == "" {
				model = "(default)"
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, key, model)
		}
		w.Flush()

		return nil
	},
}

// contextUseCmd switches the current context
var contextUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		name := args[0]
		if err := cfg.UseContext(name); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q\n", name)
		return nil
	},
}

// contextSetCmd creates or updates a context
var contextSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a context",
	Long: `Create or update a context with the specified settings.

Examples:
  # Create a new context
  voxlink config context set dev --api-key=<key>

  # Update an existing context
  voxlink config context set dev --model=models/gemini-2.0-flash-exp

  # Set a listen address for this environment
  voxlink config context set staging --api-key=<key> --listen=:9000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		name := args[0]

		// Get existing context or create new one
		ctx, err := cfg.GetContext(name)
		if err != nil {
			ctx = &cli.Context{Name: name}
		}

		if cmd.Flags().Changed("api-key") {
			ctx.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if cmd.Flags().Changed("model") {
			ctx.Model, _ = cmd.Flags().GetString("model")
		}
		if cmd.Flags().Changed("voice") {
			ctx.Voice, _ = cmd.Flags().GetString("voice")
		}
		if cmd.Flags().Changed("listen") {
			v, _ := cmd.Flags().GetString("listen")
			ctx.SetExtra("listen", v)
		}

		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		fmt.Printf("Context %q saved\n", name)
		return nil
	},
}

// contextDeleteCmd deletes a context
var contextDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		name := args[0]
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}
		fmt.Printf("Context %q deleted\n", name)
		return nil
	},
}

// contextShowCmd shows the current context details
var contextShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show context details",
	Long:  `Show details of a context. If no name is provided, shows the current context.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := GetConfig()
		if err != nil {
			return err
		}

		var ctx *cli.Context
		var name string

		if len(args) > 0 {
			name = args[0]
			ctx, err = conf.GetContext(name)
		} else {
			if conf.CurrentContext == "" {
				return fmt.Errorf("no current context set. Use 'voxlink config context use <name>' to set one")
			}
			name = conf.CurrentContext
			ctx, err = conf.GetCurrentContext()
		}
		if err != nil {
			return err
		}

		cfg := LoadBridgeConfig(ctx)

		fmt.Printf("Context: %s", name)
		if name == conf.CurrentContext {
			fmt.Print(" (current)")
		}
		fmt.Println()
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("API Key:  %s\n", maskOrNotSet(ctx.APIKey))
		fmt.Printf("Model:    %s\n", cfg.Model)
		fmt.Printf("Voice:    %s\n", valueOrNotSet(cfg.Voice))
		fmt.Printf("Listen:   %s\n", cfg.Listen)
		fmt.Println()
		fmt.Printf("Config file: %s\n", conf.Path())

		return nil
	},
}

// contextCurrentCmd shows the current context name
var contextCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

func valueOrNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func maskOrNotSet(key string) string {
	if key == "" {
		return "(not set)"
	}
	return cli.MaskAPIKey(key)
}

func init() {
	configCmd.AddCommand(contextCmd)

	contextCmd.AddCommand(contextListCmd)
	contextCmd.AddCommand(contextUseCmd)
	contextCmd.AddCommand(contextSetCmd)
	contextCmd.AddCommand(contextDeleteCmd)
	contextCmd.AddCommand(contextShowCmd)
	contextCmd.AddCommand(contextCurrentCmd)

	contextSetCmd.Flags().String("api-key", "", "Gemini API key")
	contextSetCmd.Flags().String("model", "", "Live API model")
	contextSetCmd.Flags().String("voice", "", "prebuilt voice name")
	contextSetCmd.Flags().String("listen", "", "web UI listen address")
}
