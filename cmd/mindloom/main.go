// mindloom is a terminal chat front-end for local language models:
// named agent personas backed by Ollama, with ChromaDB-backed document
// retrieval and SQLite persistence.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mindloom/cmd/mindloom/chat"
	"mindloom/internal/bridge"
	"mindloom/internal/chroma"
	"mindloom/internal/config"
	"mindloom/internal/logging"
	"mindloom/internal/ollama"
	"mindloom/internal/store"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mindloom",
	Short: "mindloom - local AI agents in your terminal",
	Long: `mindloom is a chat front-end for local language models.

Agents are named personas with a specialization, personality, and
optional custom instructions. Conversations persist in SQLite;
documents you ingest are chunked, embedded through Ollama, and
indexed in ChromaDB for retrieval during chat.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The TUI has its own category logging; zap is for the
		// non-interactive subcommands.
		if cmd.CalledAs() == "mindloom" {
			return logging.Initialize(config.Home())
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return logging.Initialize(config.Home())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check Ollama and ChromaDB availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cleanup, err := wireBackend()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		status, err := backend.CheckServiceStatus(ctx)
		if err != nil {
			return err
		}
		info, _ := backend.GetSystemInfo(ctx)

		fmt.Printf("ollama:    %s\n", upDown(status.Ollama, info.OllamaVersion))
		fmt.Printf("chromadb:  %s\n", upDown(status.ChromaDB, info.ChromaVersion))
		if len(info.Models) > 0 {
			fmt.Printf("models:    %v\n", info.Models)
		}
		return nil
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List configured agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cleanup, err := wireBackend()
		if err != nil {
			return err
		}
		defer cleanup()

		agents, err := backend.GetAgents(cmd.Context())
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			fmt.Println("no agents configured")
			return nil
		}
		for _, a := range agents {
			fmt.Printf("%s %-20s %-10s %-12s %s\n",
				a.Specialization.Icon(), a.Name,
				string(a.Specialization), string(a.Personality),
				a.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Index documents into the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cleanup, err := wireBackend()
		if err != nil {
			return err
		}
		defer cleanup()

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			doc, err := backend.AddDocument(cmd.Context(), path, string(data))
			if err != nil {
				return fmt.Errorf("index %s: %w", path, err)
			}
			logger.Info("document indexed",
				zap.String("name", doc.Name), zap.Int("chunks", doc.Chunks))
			fmt.Printf("indexed %s (%d chunks)\n", doc.Name, doc.Chunks)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [agent-id] [path]",
	Short: "Export an agent's knowledge to a portable JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cleanup, err := wireBackend()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := backend.ExportAgentKnowledge(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", args[1])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import an exported agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cleanup, err := wireBackend()
		if err != nil {
			return err
		}
		defer cleanup()

		a, err := backend.ImportAgentKnowledge(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("imported agent %s (%s)\n", a.Name, a.ID)
		return nil
	},
}

// wireBackend assembles the local backend from config.
func wireBackend() (bridge.Backend, func(), error) {
	backend, _, cleanup, err := wireAll()
	return backend, cleanup, err
}

func wireAll() (bridge.Backend, *config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, nil, err
	}

	backend := bridge.NewLocal(cfg, st,
		ollama.New(ollama.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Timeout: time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
		}),
		chroma.New(chroma.Config{
			BaseURL: cfg.Chroma.BaseURL,
			Token:   cfg.Chroma.Token,
		}))
	return backend, cfg, func() { st.Close() }, nil
}

func runChat() error {
	backend, cfg, cleanup, err := wireAll()
	if err != nil {
		return err
	}
	defer cleanup()

	p := tea.NewProgram(chat.New(cfg, backend), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func upDown(ok bool, version string) string {
	if !ok {
		return "down"
	}
	if version != "" {
		return "up (v" + version + ")"
	}
	return "up"
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")

	rootCmd.AddCommand(statusCmd, agentsCmd, ingestCmd, exportCmd, importCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
