package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [get|set] [key] [value]",
	Short: "View or modify configuration",
	Long: `View or modify the configuration of the data directory.

Without arguments, displays the full effective configuration, including
defaults and RAGCORE_* environment overrides.
Use 'get <key>' to view a specific setting.
Use 'set <key> <value>' to modify a setting; the result is validated
before it is saved.

Keys use dot notation (e.g., search.top_k, rescore.mode,
embedding.batch_size).`,
	Args: cobra.MaximumNArgs(3),
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	loader := newLoader(GetDataDir())
	out := outputFor(cmd)

	// No args - show full config
	if len(args) == 0 {
		return showFullConfig(out, loader)
	}

	switch args[0] {
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("get requires a key argument")
		}
		return getConfigValue(out, loader, args[1])
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("set requires a key argument")
		}
		if len(args) < 3 {
			return fmt.Errorf("set requires a value argument")
		}
		return setConfigValue(out, loader, args[1], args[2])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func showFullConfig(out *OutputFormatter, loader *config.Loader) error {
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if IsJSONOutput() {
		return out.JSON(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	fmt.Fprint(out.Writer(), string(data))
	return nil
}

func getConfigValue(out *OutputFormatter, loader *config.Loader, key string) error {
	value, err := loader.Get(key)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return out.JSON(map[string]any{
			"key":   key,
			"value": value,
		})
	}

	// For nested sections, output as YAML
	if section, ok := value.(map[string]any); ok {
		data, err := yaml.Marshal(section)
		if err != nil {
			return fmt.Errorf("failed to marshal value to YAML: %w", err)
		}
		fmt.Fprint(out.Writer(), string(data))
		return nil
	}
	fmt.Fprintln(out.Writer(), formatValue(value))
	return nil
}

func setConfigValue(out *OutputFormatter, loader *config.Loader, key, value string) error {
	cfg, err := loader.Set(key, value)
	if err != nil {
		return err
	}

	// Validate the updated config
	if validationErrs := config.Validate(cfg); validationErrs.HasErrors() {
		return ErrConfigInvalid(validationErrs)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if IsJSONOutput() {
		return out.JSON(map[string]any{
			"key":   key,
			"value": value,
			"saved": loader.ConfigPath(),
		})
	}
	out.Success("Set %s = %s", key, value)
	return nil
}

// formatValue prints lists one per line and everything else with %v.
func formatValue(value any) string {
	switch v := value.(type) {
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprint(item)
		}
		return strings.Join(items, "\n")
	case []string:
		return strings.Join(v, "\n")
	default:
		return fmt.Sprint(v)
	}
}
