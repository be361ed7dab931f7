// Command turnctl replays a single contact-flow turn against the local
// services, for checking routing and tool behaviour without deploying.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/app"
	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/logger"
	"github.com/alokkulkarni/connect-relay/internal/model/lex"
	"github.com/alokkulkarni/connect-relay/internal/model/tool"
	"github.com/alokkulkarni/connect-relay/internal/model/voice"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	eventPath string
	timeout   time.Duration
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "turnctl",
		Short:        "Replay one text, voice or tool turn locally",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.eventPath, "event", "-", "event JSON file, - for stdin")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 45*time.Second, "per-turn timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stdout")

	root.AddCommand(newTextCmd(opts), newVoiceCmd(opts), newToolCmd(opts))
	return root
}

func newTextCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "text",
		Short: "Route a Lex V2 code hook event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var event lex.Event
			if err := readEvent(cmd.InOrStdin(), opts.eventPath, &event); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			awsCfg, err := app.LoadAWS(ctx, cfg.AWS)
			if err != nil {
				return err
			}
			turns, err := app.NewTurnRouter(ctx, awsCfg, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := turns.Close(ctx); err != nil {
					log.Warn("background tasks did not finish", zap.Error(err))
				}
			}()

			return writeJSON(cmd.OutOrStdout(), turns.Router.Route(ctx, event))
		},
	}
}

func newVoiceCmd(opts *options) *cobra.Command {
	var audioPath string

	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Stream one audio turn through the voice router",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var event voice.Event
			if audioPath != "" {
				data, err := os.ReadFile(audioPath)
				if err != nil {
					return fmt.Errorf("read audio: %w", err)
				}
				event.AudioChunk = base64.StdEncoding.EncodeToString(data)
			} else if err := readEvent(cmd.InOrStdin(), opts.eventPath, &event); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			awsCfg, err := app.LoadAWS(ctx, cfg.AWS)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), app.NewVoice(awsCfg, cfg, log).Handle(ctx, event))
		},
	}
	cmd.Flags().StringVar(&audioPath, "audio", "", "raw audio file, sent base64 encoded instead of --event")
	return cmd
}

func newToolCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tool",
		Short: "Invoke a simulated banking tool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var event tool.Event
			if err := readEvent(cmd.InOrStdin(), opts.eventPath, &event); err != nil {
				return err
			}

			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), app.NewTools(cfg, log).Invoke(cmd.Context(), event))
		},
	}
}

func setup(opts *options) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("配置加载失败: %w", err)
	}

	log := zap.NewNop()
	if opts.verbose {
		log = logger.New(logger.Options{})
	}
	return cfg, log, nil
}

func readEvent(stdin io.Reader, path string, dst any) error {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
