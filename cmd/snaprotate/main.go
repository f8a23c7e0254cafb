package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucasew/snaprotate/internal/config"
	"github.com/lucasew/snaprotate/internal/version"
)

var (
	cfgFile string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "snaprotate",
	Short:         "Creates a fresh instance snapshot and prunes old ones",
	Version:       version.Get(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := rootCmd.Execute(); err != nil {
		logger.Error("execution failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./snaprotate.yaml)")
	rootCmd.PersistentFlags().String("instance", "", "name of the instance to snapshot")
	rootCmd.PersistentFlags().String("policy", "", "retention policy: keep-newest or purge")
	_ = viper.BindPFlag("instance.name", rootCmd.PersistentFlags().Lookup("instance"))
	_ = viper.BindPFlag("snapshot.policy", rootCmd.PersistentFlags().Lookup("policy"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("snaprotate")
		viper.SetConfigType("yaml")
	}

	config.Setup(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		logger.Info("using config file", "file", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		logger.Error("failed to read config file", "file", cfgFile, "error", err)
	}
}

// loadConfig decodes the configuration and swaps in the configured logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	l, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	logger = l
	return cfg, nil
}
