package main

import (
	"context"
	"crypto/ecdh"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/naveenspark/pushenable/internal/config"
	"github.com/naveenspark/pushenable/internal/enablement"
	"github.com/naveenspark/pushenable/internal/logging"
	"github.com/naveenspark/pushenable/internal/platform/autopush"
	"github.com/naveenspark/pushenable/internal/tui"
	"github.com/naveenspark/pushenable/pkg/client"
	"github.com/naveenspark/pushenable/pkg/vapid"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// configPath returns $PUSHENABLE_CONFIG or ~/.pushenable/config.yaml.
func configPath() (string, error) {
	if p := os.Getenv("PUSHENABLE_CONFIG"); p != "" {
		return p, nil
	}
	return config.DefaultPath()
}

func run() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "version", "-v":
			fmt.Println("pushenable " + version)
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "decode":
			if len(os.Args) < 3 {
				return fmt.Errorf("usage: pushenable decode <key>")
			}
			return runDecode(os.Stdout, os.Args[2])
		}
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "status":
			return runStatus(context.Background(), os.Stdout, cfg, zap.NewNop())
		case "unsubscribe":
			if len(os.Args) < 3 {
				return fmt.Errorf("usage: pushenable unsubscribe <endpoint>")
			}
			return runUnsubscribe(context.Background(), os.Stdout, cfg, os.Args[2])
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	return runTUI(cfg)
}

func runTUI(cfg *config.Config) error {
	logger, err := logging.New(cfg.LogPath, cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c *client.Client
	if cfg.APIURL != "" {
		c = client.New(cfg.APIURL, cfg.Token)
	}
	key, source := resolveKey(ctx, cfg, c, logger)
	logger.Info("starting",
		zap.String("version", version),
		zap.String("push_service", cfg.PushServiceURL),
		zap.String("key_source", source))

	bridge := tui.NewBridge()
	registry := autopush.NewRegistry(cfg.PushServiceURL, bridge,
		autopush.WithScript(cfg.WorkerScript, bridge.NotifyPush),
		autopush.WithLogger(logger))
	defer registry.Close() //nolint:errcheck

	opts := []enablement.Option{
		enablement.WithDisplay(bridge),
		enablement.WithLogger(logger),
		enablement.WithReadyTimeout(cfg.ReadyTimeout),
		enablement.WithWorkerScript(cfg.WorkerScript),
	}
	if c != nil {
		opts = append(opts, enablement.WithSubmitter(c))
	}
	orch := enablement.New(key, bridge, registry, opts...)

	app := tui.NewApp(ctx, orch)
	p := tea.NewProgram(app, tea.WithAltScreen())
	bridge.Attach(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// Key sources reported by resolveKey.
const (
	sourceConfig  = "config"
	sourceServer  = "server"
	sourceBuiltin = "built-in"
)

// resolveKey picks the application server key: configured, then served by
// the backend, then built in. A backend failure falls through to the
// built-in key.
func resolveKey(ctx context.Context, cfg *config.Config, c *client.Client, logger *zap.Logger) (string, string) {
	if cfg.PublicKey != "" {
		return cfg.PublicKey, sourceConfig
	}
	if c != nil {
		key, err := c.GetVAPIDKey(ctx)
		if err == nil {
			return key, sourceServer
		}
		logger.Warn("fetch application server key failed, using built-in key", zap.Error(err))
	}
	return vapid.DefaultPublicKey, sourceBuiltin
}

// describeKey decodes key and reports whether it is a valid uncompressed
// P-256 point.
func describeKey(key string) (raw []byte, point bool, err error) {
	raw, err = vapid.DecodeKey(key)
	if err != nil {
		return nil, false, err
	}
	_, perr := ecdh.P256().NewPublicKey(raw)
	return raw, perr == nil, nil
}

func runDecode(w io.Writer, key string) error {
	raw, point, err := describeKey(key)
	if err != nil {
		return err
	}
	printDecoded(w, raw, point)
	return nil
}

func runStatus(ctx context.Context, w io.Writer, cfg *config.Config, logger *zap.Logger) error {
	var c *client.Client
	if cfg.APIURL != "" {
		c = client.New(cfg.APIURL, cfg.Token)
	}
	key, source := resolveKey(ctx, cfg, c, logger)
	raw, point, err := describeKey(key)
	printStatus(w, cfg, source, raw, point, err)
	return nil
}

func runUnsubscribe(ctx context.Context, w io.Writer, cfg *config.Config, endpoint string) error {
	if cfg.APIURL == "" {
		return fmt.Errorf("unsubscribe: no api_url configured")
	}
	c := client.New(cfg.APIURL, cfg.Token)
	if err := c.DeleteSubscription(ctx, endpoint); err != nil {
		if client.IsGone(err) {
			fmt.Fprintln(w, "Subscription already removed.") //nolint:errcheck
			return nil
		}
		return err
	}
	fmt.Fprintln(w, "Unsubscribed.") //nolint:errcheck
	return nil
}
