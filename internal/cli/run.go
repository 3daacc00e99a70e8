package cli

import (
	"github.com/spf13/cobra"

	"github.com/forPelevin/threadreel/internal/config"
	"github.com/forPelevin/threadreel/internal/log"
)

// loadConfig reads --config, applies --log-level and configures logging.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	log.Configure(log.Config{
		Level:  cfg.Logging.Level,
		Output: cmd.ErrOrStderr(),
		Pretty: cfg.Logging.Pretty,
	})
	return cfg, nil
}

func overrideString(cmd *cobra.Command, flag string, dst *string) {
	if cmd.Flags().Changed(flag) {
		*dst, _ = cmd.Flags().GetString(flag)
	}
}
