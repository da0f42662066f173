package commands

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the voice chat server",
	Long: `Start the local web server and open the chat page.

The page captures microphone audio, streams it through a Gemini Live
session and plays the voice response. An API key is taken from the
--api-key flag, the active context, or the GEMINI_API_KEY / GOOGLE_API_KEY
environment variables; the page can also supply its own key.`,
	RunE: runServe,
}

var (
	serveListen  string
	serveAPIKey  string
	serveModel   string
	serveVoice   string
	serveNoOpen  bool
	serveVerbose bool
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default :8090)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "Gemini API key")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "Live API model")
	serveCmd.Flags().StringVar(&serveVoice, "voice", "", "prebuilt voice name")
	serveCmd.Flags().BoolVar(&serveNoOpen, "no-open", false, "do not open the browser")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "enable debug logging")

	// The root command serves by default, so it takes the same flags.
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if serveVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	cliCtx, err := getContext()
	if err != nil {
		// Serving without a context is fine; a key can come from the
		// environment or the page.
		slog.Debug("no usable context", "error", err)
	}

	cfg := LoadBridgeConfig(cliCtx)
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if serveAPIKey != "" {
		cfg.APIKey = serveAPIKey
	}
	if serveModel != "" {
		cfg.Model = serveModel
	}
	if serveVoice != "" {
		cfg.Voice = serveVoice
	}
	if serveNoOpen {
		cfg.OpenUI = false
	}

	if cfg.APIKey == "" {
		slog.Warn("no API key configured; the chat page must supply one")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := NewWebServer(cfg)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})

	url := browseURL(cfg.Listen)
	slog.Info("Chat page ready", "url", url)
	if cfg.OpenUI {
		g.Go(func() error {
			// Give the listener a moment before pointing a browser at it.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
			if err := browser.OpenURL(url); err != nil {
				slog.Warn("could not open browser", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// browseURL turns a listen address into something a browser can open.
func browseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}
