package commands

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meltingprovince/virtualset/internal/config"
	"github.com/meltingprovince/virtualset/internal/logger"
)

// flag names
const (
	flagEnvFile = "env-file"
	flagJSON    = "json"
)

var (
	// cfg is loaded by PersistentPreRunE; commands read it through currentConfig
	cfg *config.Config
	// jsonOutput switches every command to JSON output
	jsonOutput bool
)

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringP(config.KeyWebhookURL, "u", config.DefaultWebhookURL, "Webhook base URL (env: VSET_WEBHOOK_URL)")
	flags.String(config.KeyEnvironment, string(config.EnvDevelopment), "Environment: development or production (env: VSET_ENV)")
	flags.String(config.KeyInitData, "", "Host issued auth token, forwarded verbatim (env: VSET_INIT_DATA)")
	flags.String(config.KeyHostUserID, "", "Host user id (env: VSET_HOST_USER_ID)")
	flags.String(config.KeyHostUsername, "", "Host username (env: VSET_HOST_USERNAME)")
	flags.String(config.KeyOutputType, "images", "Output type: images or video (env: VSET_OUTPUT_TYPE)")
	flags.Duration(config.KeyPollInterval, config.DefaultPollInterval, "Delay between status polls")
	flags.Int(config.KeyMaxPollFailures, config.DefaultMaxPollFailures, "Consecutive failed polls before giving up")
	flags.Duration(config.KeyMaxPollBackoff, config.DefaultMaxPollBackoff, "Upper bound of the delay after failed polls")
	flags.Duration(config.KeyRequestTimeout, config.DefaultRequestTimeout, "Timeout of each webhook request")
	flags.String(flagEnvFile, ".env", "Optional dotenv file")
	flags.BoolVar(&jsonOutput, flagJSON, false, "Print JSON instead of tables")

	RootCmd.AddCommand(GetBriefCmd())
	RootCmd.AddCommand(GetJobsCmd())
	RootCmd.AddCommand(GetCatalogCmd())
	RootCmd.AddCommand(GetDevServerCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "vset",
	Short: "vset - virtual set brief and generation CLI",
	Long: `vset collects a virtual studio set brief, submits it to the generation
webhook and follows the job until its images are ready.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString(flagEnvFile)
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		logger.InitializeAndConfigure()
		logger.SetOutput(cmd.ErrOrStderr())
		if os.Getenv(logger.EnvLogLevel) == "" {
			logger.SetLevel(logrus.WarnLevel)
		}

		v := config.NewViper()
		if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}

		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// currentConfig returns the loaded config, falling back to defaults and
// environment when the root hook did not run
func currentConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.Load(config.NewViper())
}
