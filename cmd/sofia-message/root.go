package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arzzra/sofia_sip/pkg/config"
)

// app состояние, общее для подкоманд. Заполняется в PersistentPreRunE.
type app struct {
	cfgFile  string
	logLevel string
	agentURL string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sofia-message",
		Short: "SIP MESSAGE и INVITE через nua агента",
		Long: `sofia-message поднимает nua агента на адресе из конфигурации и
отправляет MESSAGE или INVITE, либо принимает входящие MESSAGE и пишет
их в журнал SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML файл конфигурации (по умолчанию встроенные значения)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "уровень логирования: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.agentURL, "url", "", "адрес агента, переопределяет agent.url")

	root.AddCommand(
		newSendCmd(a),
		newInviteCmd(a),
		newListenCmd(a),
		newInboxCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.cfgFile != "" {
		var err error
		if cfg, err = config.Load(a.cfgFile); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.agentURL != "" {
		cfg.Agent.URL = a.agentURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("некорректные параметры: %w", err)
	}
	a.cfg = cfg

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel()})
	slog.SetDefault(slog.New(handler))
	a.log = slog.Default().With(slog.String("component", "sofia-message"))
	return nil
}
