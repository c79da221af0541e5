package main

import (
	"fmt"
	"os"

	"eamhc/config"
	"eamhc/emotion"
	"eamhc/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string

	conf config.Configuration
	log  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "eamhc",
	Short: "Emotion-aware mental health coaching backend",
	Long: `eamhc serves the emotion inference API: free text in, a label and a
probability distribution out, produced by an external classifier process.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		conf, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log, err = logger.New(conf)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file (.json, .yaml or .yml)")
	rootCmd.AddCommand(serveCmd, classifyCmd)
}

func defaultConfigPath() string {
	if p := os.Getenv(config.EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	return "config.json"
}

// bridgeOptions maps the classifier section of the config.
func bridgeOptions(c config.Configuration) (emotion.Options, error) {
	protocol, err := emotion.ParseProtocol(c.Classifier.Protocol)
	if err != nil {
		return emotion.Options{}, err
	}
	return emotion.Options{
		Backend: c.Classifier.Backend,
		Process: emotion.ProcessConfig{
			Command:  c.Classifier.Command,
			Args:     c.Classifier.Args,
			Dir:      c.Classifier.WorkDir,
			Timeout:  c.Classifier.Timeout(),
			Protocol: protocol,
		},
		MaxConcurrent: c.Classifier.MaxConcurrent,
		MaxTextLen:    c.Classifier.MaxTextLen,
		AllowDegraded: c.Classifier.AllowDegraded,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
