package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shaiso/Textflow/internal/config"
	"github.com/shaiso/Textflow/internal/definition"
	"github.com/shaiso/Textflow/internal/orchestrator"
	"github.com/shaiso/Textflow/internal/telemetry"
)

// Env — общее окружение команд: настройки, логгер и глобальные флаги.
//
// Заполняется в PersistentPreRunE после разбора флагов.
type Env struct {
	Settings *config.Settings
	Logger   *slog.Logger

	jsonMode  bool
	apiURL    string
	logLevel  string
	logFormat string
}

// Output создаёт Output, пишущий в потоки команды.
func (e *Env) Output(cmd *cobra.Command) *Output {
	return newOutput(e.jsonMode, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Client создаёт клиент для API.
func (e *Env) Client() *Client {
	return NewClient(e.Settings.API.URL)
}

// Loader создаёт загрузчик определений по настройкам движка.
func (e *Env) Loader(metrics orchestrator.Recorder) *definition.Loader {
	return definition.NewLoader(definition.Config{
		Orchestrator: orchestrator.Config{
			Workers: e.Settings.Engine.Workers,
			Logger:  e.Logger,
			Metrics: metrics,
		},
	})
}

// setup загружает настройки и накладывает на них глобальные флаги.
func (e *Env) setup(cmd *cobra.Command) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		settings.API.URL = e.apiURL
	}
	if flags.Changed("log-level") {
		settings.Log.Level = e.logLevel
	}
	if flags.Changed("log-format") {
		settings.Log.Format = e.logFormat
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	e.Settings = settings
	e.Logger = telemetry.SetupLogger(cmd.ErrOrStderr(), settings.Log.Level, settings.Log.Format)
	return nil
}

// NewRootCmd создаёт корневую команду textflow со всеми подкомандами.
func NewRootCmd(version string) *cobra.Command {
	env := &Env{}

	cmd := &cobra.Command{
		Use:           "textflow",
		Short:         "Textflow — workflow execution engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&env.jsonMode, "json", false, "Output in JSON format")
	flags.StringVar(&env.apiURL, "api-url", "", "API server URL for remote commands")
	flags.StringVar(&env.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&env.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(
		NewRunCmd(env),
		NewValidateCmd(env),
		NewScheduleCmd(env),
		NewServeCmd(env),
		NewRemoteCmd(env),
		NewEventsCmd(env),
	)

	return cmd
}
