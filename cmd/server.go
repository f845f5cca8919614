package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/api"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/config"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/container"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// shutdownTimeout 优雅关闭等待时间
const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Factory Scheduler API server.
The server listens on the configured host and port, serves the scheduling
REST API, pushes schedule events over WebSocket and SSE, and reloads the
schedule section of the config file when it changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		cfg, configPath, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if config.IsProduction(cfg) {
			gin.SetMode(gin.ReleaseMode)
		}

		// 2. 链路追踪
		if cfg.Tracing.Enabled {
			if err := api.InitTracing(cfg.Tracing, cfg.Env); err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := api.ShutdownTracing(ctx); err != nil {
					logger.WithError(err).Warn("failed to flush traces")
				}
			}()
		}

		// 3. 初始化容器并启动后台组件
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctr.Start(ctx)

		// 4. 配置热更新,只有 schedule 段会在运行中生效
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath, logger)
			watcher.OnConfigChange(ctr.ApplyConfig)
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("config hot reload disabled")
			}
			defer watcher.Stop()
		}

		// 5. 设置路由
		svcs := ctr.Services()
		router := api.SetupRoutesWithConfig(api.RouterDeps{
			Config:      cfg,
			DB:          ctr.DB(),
			Redis:       ctr.Redis(),
			Hub:         ctr.Hub(),
			Validator:   ctr.Validator(),
			Task:        svcs.Task,
			Schedule:    svcs.Schedule,
			Machine:     svcs.Machine,
			Worker:      svcs.Worker,
			Maintenance: svcs.Maintenance,
			Statistics:  svcs.Statistics,
		})

		// 6. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		// 等待中断信号或启动失败
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
		case <-ctx.Done():
		}

		logger.Info("shutting down server")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志,覆盖配置文件
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
