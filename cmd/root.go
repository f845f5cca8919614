package cmd

import (
	"fmt"
	"os"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/api"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "factory-scheduler",
	Short: "Smart factory scheduling API server",
	Long: `Factory Scheduler is a REST API server for production scheduling.
It detects resource conflicts between tasks, proposes optimized schedules,
reassigns tasks to free machines or workers and tracks machine maintenance.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.factory-scheduler)")
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig 读取 --config 指定的配置并创建日志记录器
func loadConfig(cmd *cobra.Command) (*config.Config, string, *logrus.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	api.SetLogger(logger)
	return cfg, configPath, logger, nil
}
