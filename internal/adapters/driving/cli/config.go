package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notesync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `View and change values in the configuration file.

Values set here are the file layer: environment variables and flags still
take precedence when the commands run.`,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.Println(cfgStore.Path())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored in the file for a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value in the configuration file",
	Long: `Stores a value in the configuration file. The value is checked against
the rest of the file before it is written.

Durations use Go syntax (1500ms, 2m). Lists are comma separated.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if cfgErr != nil {
		cmd.Printf("Configuration in %s is invalid:\n  %v\n", cfgStore.Path(), cfgErr)
		return cfgErr
	}

	red := cfg.Redacted()
	cmd.Printf("# %s\n", cfgStore.Path())
	for _, k := range config.Keys() {
		value, _ := red.Value(k.Name)
		if value == "" {
			value = "(unset)"
		}
		cmd.Printf("%-24s %s\n", k.Name, value)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key, ok := config.LookupKey(args[0])
	if !ok {
		return fmt.Errorf("%w: unknown key %q", config.ErrInvalidConfig, args[0])
	}

	value, ok := cfgStore.Get(key.Name)
	if !ok {
		cmd.Println("(unset)")
		return nil
	}
	if key.Secret {
		cmd.Println(maskSecret(fmt.Sprint(value)))
		return nil
	}
	cmd.Println(fmt.Sprint(value))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	name, raw := args[0], args[1]
	value, err := config.ParseValue(name, raw)
	if err != nil {
		return err
	}

	// Check the file as it would be after the change, without the
	// environment or flags.
	preview := memory.NewConfigStore()
	for _, k := range cfgStore.Keys() {
		if v, ok := cfgStore.Get(k); ok {
			if err := preview.Set(k, v); err != nil {
				return err
			}
		}
	}
	if err := preview.Set(name, value); err != nil {
		return err
	}
	if _, err := config.Load(config.LoadOptions{Store: preview, Environ: map[string]string{}}); err != nil {
		return err
	}

	if err := cfgStore.Set(name, value); err != nil {
		return err
	}
	if err := cfgStore.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	key, _ := config.LookupKey(name)
	if key.Secret {
		raw = maskSecret(raw)
	}
	cmd.Printf("Set %s = %s\n", name, raw)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	for _, k := range config.Keys() {
		cmd.Printf("%-24s %-9s %s\n", k.Name, k.Kind, k.Description)
	}
	return nil
}

// maskSecret keeps the last four characters of long values.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return "********" + s[len(s)-4:]
}
