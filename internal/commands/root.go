// internal/commands/root.go
package klimax

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	configLoaded  bool
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "klimax",
	Short: "klimax — concurrency scaling benchmark for LLM completion endpoints",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		for _, name := range []string{"debug", "htmlReport", "promptCycle"} {
			if !cmd.Flags().Changed(name) {
				val := viper.GetBool(viperKeyFor(name))
				_ = cmd.Flags().Set(name, strconv.FormatBool(val))
			}
		}

		cfg := appconfig.Defaults()
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		cfg.ConfigPath = loadedConfigFile()
		currentConfig = &cfg

		if err := logging.Init(currentConfig.LogFilePath()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := appconfig.Defaults()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")

	rootCmd.PersistentFlags().String("endpoint", "", "completion endpoint URL to benchmark")
	rootCmd.PersistentFlags().String("endpointType", "", "request format: openai or azureml (empty = detect from URL)")
	rootCmd.PersistentFlags().String("authToken", "", "bearer token sent with each request")
	rootCmd.PersistentFlags().String("model", "", "model name sent in openai-style request bodies")
	rootCmd.PersistentFlags().IntSlice("concurrencyLevels", defaults.ConcurrencyLevels, "concurrency levels visited in the order given")
	rootCmd.PersistentFlags().Int("requestsPerLevel", defaults.RequestsPerLevel, "measured requests per repetition (0 = match the level)")
	rootCmd.PersistentFlags().Int("repetitions", defaults.Repetitions, "repetitions per concurrency level")
	rootCmd.PersistentFlags().Int("warmupRequests", defaults.WarmupRequests, "warm-up requests issued and discarded before each repetition")
	rootCmd.PersistentFlags().Int("maxTokens", defaults.MaxTokens, "max_tokens requested per completion")
	rootCmd.PersistentFlags().Float64("temperature", defaults.Temperature, "sampling temperature sent with each request")
	rootCmd.PersistentFlags().Int("timeoutSeconds", defaults.TimeoutSeconds, "per-request timeout in seconds")
	rootCmd.PersistentFlags().Int("runDeadlineSeconds", defaults.RunDeadlineSeconds, "overall sweep deadline in seconds (0 = unbounded)")
	rootCmd.PersistentFlags().Int("breakSeconds", defaults.BreakSeconds, "pause between concurrency levels in seconds")
	rootCmd.PersistentFlags().Float64("ratePerSecond", defaults.RatePerSecond, "request launch ceiling in requests per second (0 = unlimited)")
	rootCmd.PersistentFlags().String("failedTokenPolicy", defaults.FailedTokenPolicy, "token accounting for failed requests: exclude or zero")
	rootCmd.PersistentFlags().String("promptMode", defaults.Prompts.Mode, "prompt source: generate or file")
	rootCmd.PersistentFlags().String("promptFile", defaults.Prompts.File, "prompt file for promptMode=file (one prompt per line)")
	rootCmd.PersistentFlags().Int("promptTargetTokens", defaults.Prompts.TargetTokens, "approximate prompt size for promptMode=generate")
	rootCmd.PersistentFlags().Bool("promptCycle", defaults.Prompts.Cycle, "cycle the prompt file when a sweep needs more prompts than it holds")
	rootCmd.PersistentFlags().String("outputDir", defaults.OutputDir, "directory for sweep artifacts")
	rootCmd.PersistentFlags().Bool("htmlReport", defaults.HTMLReport, "write the self-contained HTML report after a sweep")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag("endpointType", rootCmd.PersistentFlags().Lookup("endpointType"))
	_ = viper.BindPFlag("authToken", rootCmd.PersistentFlags().Lookup("authToken"))
	_ = viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("concurrencyLevels", rootCmd.PersistentFlags().Lookup("concurrencyLevels"))
	_ = viper.BindPFlag("requestsPerLevel", rootCmd.PersistentFlags().Lookup("requestsPerLevel"))
	_ = viper.BindPFlag("repetitions", rootCmd.PersistentFlags().Lookup("repetitions"))
	_ = viper.BindPFlag("warmupRequests", rootCmd.PersistentFlags().Lookup("warmupRequests"))
	_ = viper.BindPFlag("maxTokens", rootCmd.PersistentFlags().Lookup("maxTokens"))
	_ = viper.BindPFlag("temperature", rootCmd.PersistentFlags().Lookup("temperature"))
	_ = viper.BindPFlag("timeoutSeconds", rootCmd.PersistentFlags().Lookup("timeoutSeconds"))
	_ = viper.BindPFlag("runDeadlineSeconds", rootCmd.PersistentFlags().Lookup("runDeadlineSeconds"))
	_ = viper.BindPFlag("breakSeconds", rootCmd.PersistentFlags().Lookup("breakSeconds"))
	_ = viper.BindPFlag("ratePerSecond", rootCmd.PersistentFlags().Lookup("ratePerSecond"))
	_ = viper.BindPFlag("failedTokenPolicy", rootCmd.PersistentFlags().Lookup("failedTokenPolicy"))
	_ = viper.BindPFlag("prompts.mode", rootCmd.PersistentFlags().Lookup("promptMode"))
	_ = viper.BindPFlag("prompts.file", rootCmd.PersistentFlags().Lookup("promptFile"))
	_ = viper.BindPFlag("prompts.targetTokens", rootCmd.PersistentFlags().Lookup("promptTargetTokens"))
	_ = viper.BindPFlag("prompts.cycle", rootCmd.PersistentFlags().Lookup("promptCycle"))
	_ = viper.BindPFlag("outputDir", rootCmd.PersistentFlags().Lookup("outputDir"))
	_ = viper.BindPFlag("htmlReport", rootCmd.PersistentFlags().Lookup("htmlReport"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("logFile"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// viperKeyFor maps a flag name to its viper key. Prompt flags bind under the
// nested prompts block; every other flag binds under its own name.
func viperKeyFor(flag string) string {
	switch flag {
	case "promptMode":
		return "prompts.mode"
	case "promptFile":
		return "prompts.file"
	case "promptTargetTokens":
		return "prompts.targetTokens"
	case "promptCycle":
		return "prompts.cycle"
	}
	return flag
}

// ensureConfigLoaded reads the config file. A missing file is not an error:
// flags and defaults still form a complete configuration.
func ensureConfigLoaded() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			configLoaded = false
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	configLoaded = true
	return nil
}

// loadedConfigFile returns the config file path when one was actually read.
func loadedConfigFile() string {
	if !configLoaded {
		return ""
	}
	return viper.ConfigFileUsed()
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// DebugEnabled returns true if debug mode is enabled.
func DebugEnabled() bool { return viper.GetBool("debug") }

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
