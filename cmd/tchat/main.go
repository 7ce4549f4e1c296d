package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eznix86/tchat/internal/config"
	"github.com/eznix86/tchat/internal/irc"
	"github.com/eznix86/tchat/internal/logging"
	"github.com/eznix86/tchat/internal/ui"
)

var (
	// Global flags
	configPath string
	channel    string
	token      string
	nick       string
	addr       string
	logFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "tchat",
	Short: "Twitch chat in the terminal with vim-style editing",
	Long: `tchat joins a single Twitch channel and shows its chat full-screen.

The bottom row is the compose line. Press i to type, Enter to send,
Esc to return to Normal mode, ctrl+c or ctrl+q to quit.

The OAuth token is read from --token, TWITCH_TOKEN or the config file.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/tchat/config.toml)")
	rootCmd.Flags().StringVarP(&channel, "channel", "c", "", "Channel to join (or set TCHAT_CHANNEL)")
	rootCmd.Flags().StringVar(&token, "token", "", "OAuth token (or set TWITCH_TOKEN)")
	rootCmd.Flags().StringVarP(&nick, "nick", "n", "", "Login name (default: the channel name)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "Chat server host:port (default: "+config.DefaultAddr+")")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig layers flags the user actually set over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("channel") {
		cfg.Channel = channel
	}
	if flags.Changed("token") {
		cfg.Token = token
	}
	if flags.Changed("nick") {
		cfg.Nick = nick
	}
	if flags.Changed("addr") {
		cfg.Addr = addr
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogFile, cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ircCfg := irc.NewConfig(cfg.Nick, cfg.Channel, cfg.Token)
	ircCfg.Addr = cfg.Addr
	ircCfg.HandshakeTimeout = cfg.HandshakeTimeout()
	ircCfg.MessagesPer30s = cfg.MessagesPer30s
	ircCfg.Logger = logger

	logger.Info("connecting", zap.String("addr", cfg.Addr), zap.String("channel", cfg.Channel), zap.String("nick", cfg.Nick))
	session, err := irc.Open(ctx, ircCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Addr, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()
	// The TUI handles ctrl+c itself from here on.
	stop()

	model := ui.NewModel(session, ui.SystemClipboard{},
		ui.WithLogger(logger),
		ui.WithScrollbackLimit(cfg.ScrollbackLimit),
	)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	logger.Info("exiting")
	return nil
}
