package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/voxlink/voxlink/pkg/cli"
	"github.com/voxlink/voxlink/pkg/geminilive"
)

var (
	cfgFile      string
	contextName  string
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voxlink",
	Short: "Voice chat bridge for the Gemini Live API",
	Long: `voxlink bridges a browser audio chat page to the Gemini Live API.

It serves a local web UI, captures microphone audio over WebRTC (or a
WebSocket fallback), streams it to a Live session, and plays the
synthesized audio response back in the browser.

Configuration is stored in ~/.voxlink/ and supports multiple contexts,
allowing you to switch between different API keys and models.`,
	// Serve by default
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.voxlink/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default is current context)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// configErr stores the config load error for deferred reporting.
var configErr error

func initConfig() {
	cfg, err := cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		// Store error for deferred reporting. Commands that need config
		// get a clear error via GetConfig() instead of a nil deref.
		configErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
// Returns an error if the config could not be loaded (e.g., HOME not set).
func GetConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configErr != nil {
			return nil, fmt.Errorf("config not available: %w", configErr)
		}
		// Try loading again (e.g., the dir was created since init).
		cfg, err := cli.LoadConfigWithPath(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// getContext returns the context to use, resolving from flag or current context.
func getContext() (*cli.Context, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

// BridgeConfig holds the serve configuration resolved from context, flags
// and environment.
type BridgeConfig struct {
	APIKey string
	Model  string
	Voice  string
	Listen string
	OpenUI bool
}

// DefaultBridgeConfig returns default configuration. The API key default
// is read once from the environment and only used to prefill the UI form.
func DefaultBridgeConfig() *BridgeConfig {
	return &BridgeConfig{
		APIKey: envAPIKey(),
		Model:  geminilive.DefaultModel,
		Listen: ":8090",
		OpenUI: true,
	}
}

// envAPIKey returns the API key from the environment, if any.
func envAPIKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// LoadBridgeConfig loads serve configuration from a context.
func LoadBridgeConfig(ctx *cli.Context) *BridgeConfig {
	cfg := DefaultBridgeConfig()
	if ctx == nil {
		return cfg
	}

	if ctx.APIKey != "" {
		cfg.APIKey = ctx.APIKey
	}
	if ctx.Model != "" {
		cfg.Model = ctx.Model
	}
	if ctx.Voice != "" {
		cfg.Voice = ctx.Voice
	}
	if v := ctx.GetExtra("listen"); v != "" {
		cfg.Listen = v
	}
	if v := ctx.GetExtra("open"); v != "" {
		if open, err := strconv.ParseBool(v); err == nil {
			cfg.OpenUI = open
		}
	}
	return cfg
}
