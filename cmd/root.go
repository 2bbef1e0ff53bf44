package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	apiBaseURL  string
	apiTimeout  time.Duration
	dbPath      string
	redisURL    string
	logLevel    string
	modelName   string
	downloadDir string
	themeName   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "casevoice",
	Short: "Terminal console for audio transcription case management",
	Long: `CaseVoice Console is a terminal client for the CaseVoice transcription
backend. It manages cases, uploads audio recordings, tracks transcription and
summarization tasks, and renders AI context analysis of call summaries.

Features:
- TUI for case, file, and task management
- Concurrent audio upload with post-upload processing
- Background polling with live Redis Streams task updates
- Local SQLite store for saved summaries and activity history
- Folder watch mode for hands-free audio ingestion`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.casevoice.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "http://localhost:8000", "CaseVoice backend base URL")
	rootCmd.PersistentFlags().DurationVar(&apiTimeout, "api-timeout", 60*time.Second, "HTTP timeout for backend requests")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "./data/casevoice.db", "Local SQLite database path")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis connection URL for live task updates (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "gemma2:9b", "Model name sent with process and summarize requests")
	rootCmd.PersistentFlags().StringVar(&downloadDir, "download-dir", "./downloads", "Directory for downloaded audio files")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "dark", "UI theme (dark, light, high-contrast, colorblind)")

	// Bind flags to viper
	viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("api.timeout", rootCmd.PersistentFlags().Lookup("api-timeout"))
	viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("redis.url", rootCmd.PersistentFlags().Lookup("redis"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("model.name", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("download.dir", rootCmd.PersistentFlags().Lookup("download-dir"))
	viper.BindPFlag("ui.theme", rootCmd.PersistentFlags().Lookup("theme"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".casevoice" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".casevoice")
	}

	viper.SetEnvPrefix("CASEVOICE")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Set defaults
	viper.SetDefault("api.base_url", "http://localhost:8000")
	viper.SetDefault("api.timeout", "60s")
	viper.SetDefault("database.path", "./data/casevoice.db")
	viper.SetDefault("redis.url", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("model.name", "gemma2:9b")
	viper.SetDefault("download.dir", "./downloads")
	viper.SetDefault("player.command", "")
	viper.SetDefault("ui.theme", "dark")
	viper.SetDefault("watch.patterns", []string{"*.wav", "*.mp3", "*.m4a", "*.ogg", "*.flac"})
}

// GetConfig returns the current configuration values
func GetConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: viper.GetString("api.base_url"),
			Timeout: viper.GetDuration("api.timeout"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("redis.url"),
		},
		Log: LogConfig{
			Level: viper.GetString("log.level"),
		},
		Model: ModelConfig{
			Name: viper.GetString("model.name"),
		},
		Download: DownloadConfig{
			Dir: viper.GetString("download.dir"),
		},
		Player: PlayerConfig{
			Command: viper.GetString("player.command"),
		},
		UI: UIConfig{
			Theme: viper.GetString("ui.theme"),
		},
		Watch: WatchConfig{
			Patterns: viper.GetStringSlice("watch.patterns"),
		},
	}
}

// Config represents the application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Model    ModelConfig    `mapstructure:"model"`
	Download DownloadConfig `mapstructure:"download"`
	Player   PlayerConfig   `mapstructure:"player"`
	UI       UIConfig       `mapstructure:"ui"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ModelConfig struct {
	Name string `mapstructure:"name"`
}

type DownloadConfig struct {
	Dir string `mapstructure:"dir"`
}

type PlayerConfig struct {
	Command string `mapstructure:"command"`
}

type UIConfig struct {
	Theme string `mapstructure:"theme"`
}

type WatchConfig struct {
	Patterns []string `mapstructure:"patterns"`
}
