// Package cli provides the command-line interface for strix.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/casualjim/strix"
	"github.com/casualjim/strix/internal/broker"
	"github.com/casualjim/strix/internal/config"
	"github.com/casualjim/strix/pkg/natsx"
	"github.com/casualjim/strix/provider/openai"
	"github.com/casualjim/strix/store"
	"github.com/casualjim/strix/store/memory"
	"github.com/casualjim/strix/store/mongo"
	"github.com/casualjim/strix/store/sqlite"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	conversationKey string
	storeKind       string

	cfg       config.Config
	st        store.Store
	brk       broker.Broker
	natsConn  *nats.Conn
	assistant *strix.Assistant
	closeLog  func() error
)

var rootCmd = &cobra.Command{
	Use:   "strix",
	Short: "Talk to a hosted assistant from the terminal",
	Long: `Strix holds conversations with a hosted assistant.

Every conversation is identified by a key and keeps its history in the
configured store (sqlite, mongo or memory). The assistant can call the
built-in tools while it answers.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "tools", "completion", cobra.ShellCompRequestCmd:
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&conversationKey, "user", "u", defaultConversationKey(), "conversation key")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "store to use: sqlite, mongo or memory (default $STRIX_STORE)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(toolsCmd)
}

func defaultConversationKey() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "default"
}

func setup(ctx context.Context) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if storeKind != "" {
		cfg.Store = storeKind
	}

	var logger *slog.Logger
	logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	st, err = openStore(ctx, cfg)
	if err != nil {
		return err
	}

	brk, err = openBroker(cfg)
	if err != nil {
		return err
	}

	remote := openai.New(option.WithAPIKey(cfg.OpenAIAPIKey))
	tools := demoTools()
	assistant, err = strix.New(ctx, remote, st,
		strix.Name(cfg.AssistantName),
		strix.Instructions(cfg.Instructions),
		strix.Model(cfg.Model),
		strix.Audio(remote),
		strix.PollInterval(cfg.PollInterval),
		strix.CancelTimeout(cfg.CancelTimeout),
		strix.Tools(tools[0], tools[1:]...),
		strix.Hook(broker.NewPublisher(brk)),
	)
	if err != nil {
		return fmt.Errorf("resolve assistant: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.StoreMongo:
		return mongo.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func openBroker(cfg config.Config) (broker.Broker, error) {
	if cfg.NATSURL == "" {
		return broker.Local()
	}
	conn, err := natsx.NewClient(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	natsConn = conn
	return broker.NATS(conn)
}

func teardown() {
	if natsConn != nil {
		natsConn.Close()
	}
	if st != nil {
		if err := st.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
		}
	}
	if closeLog != nil {
		_ = closeLog()
	}
}
