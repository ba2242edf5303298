package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"voice-memos-go/internal/config"
	"voice-memos-go/internal/extractor"
	"voice-memos-go/internal/logger"
	"voice-memos-go/internal/pipeline"
	"voice-memos-go/internal/store"
)

// app is the state shared by all commands once the root has loaded config.
type app struct {
	cfg config.Config
	log *logger.Logger
	out io.Writer

	wire func(config.Config, *logrus.Entry) pipeline.Deps
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{wire: pipeline.Wire})
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "memo",
		Short:         "Voice memo transcription tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.out = cmd.OutOrStdout()

			// stdout carries command output; logs go to stderr.
			a.log = logger.New()
			a.log.Logger.SetOutput(cmd.ErrOrStderr())
			if verbose {
				a.log.Logger.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newProcessCmd(a),
		newTranscribeCmd(a),
		newRepairCmd(a),
		newValidateCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

func (a *app) deps() pipeline.Deps {
	return a.wire(a.cfg, a.log.Entry)
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.RecordingsDir, a.log.Entry)
}

func (a *app) llm() extractor.Completer {
	return extractor.New(extractor.Config{
		APIKey:   a.cfg.OpenAIAPIKey,
		BaseURL:  a.cfg.OpenAIBaseURL,
		Model:    a.cfg.LLMModel,
		MaxRetry: a.cfg.LLMMaxRetry,
	}, a.cfg.UseMockLLM, a.log.Entry)
}

// requireFile checks that the --file flag names an existing regular file.
func requireFile(path string) error {
	if path == "" {
		return fmt.Errorf("input file is required, use -f flag")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
