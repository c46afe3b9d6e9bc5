package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telbank/voiceline/internal/config"
	"github.com/telbank/voiceline/internal/log"
	"github.com/telbank/voiceline/pkg/oracle"
	"github.com/telbank/voiceline/pkg/registry"
	"github.com/telbank/voiceline/pkg/server"
	"github.com/telbank/voiceline/pkg/store"
	"github.com/telbank/voiceline/pkg/stt"
	"github.com/telbank/voiceline/pkg/tts"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the voiceline server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log.Init(cfg.LogLevel)
			logger := log.L()

			var st store.Store
			if cfg.DatabaseURL == "" {
				logger.Warn("no database configured, using in-memory store with demo data")
				st = store.NewMemoryWithDemoData()
			} else {
				st, err = store.NewPostgres(cmd.Context(), cfg.DatabaseURL, logger)
				if err != nil {
					return err
				}
			}
			defer st.Close()

			orc, err := oracle.NewClient(
				oracle.WithAPIKey(cfg.OracleAPIKey),
				oracle.WithBaseURL(cfg.OracleBaseURL),
				oracle.WithModel(cfg.OracleModel),
				oracle.WithTimeout(cfg.OracleTimeout),
				oracle.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			defer orc.Close()

			srv := server.NewServer(server.Deps{
				Store:    st,
				Oracle:   orc,
				Registry: registry.New(),
				Logger:   logger,
				NewRecognizer: func() (stt.Recognizer, error) {
					return stt.NewDeepgram(
						stt.WithAPIKey(cfg.DeepgramAPIKey),
						stt.WithModel(cfg.DeepgramModel),
						stt.WithSampleRate(cfg.SampleRate),
						stt.WithLogger(logger),
					)
				},
				NewSynthesizer: func() (tts.Synthesizer, error) {
					return tts.NewElevenLabs(
						tts.WithAPIKey(cfg.ElevenLabsAPIKey),
						tts.WithVoiceID(cfg.ElevenLabsVoiceID),
						tts.WithModelID(cfg.ElevenLabsModel),
						tts.WithLogger(logger),
					)
				},
			})

			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
				<-sig
				logger.Info("shutting down")
				if err := srv.Shutdown(); err != nil {
					logger.Error("shutdown failed", "error", err)
				}
			}()

			return srv.Start(fmt.Sprintf(":%d", cfg.Port))
		},
	}
}
