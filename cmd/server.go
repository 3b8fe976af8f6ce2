/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/api"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/auth"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/config"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/container"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/metrics"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the AgriVision Provenance API server.
The server will listen on the configured host and port,
and provide REST API interfaces for the sample provenance lifecycle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 生产环境启用 JWT 验证
		if issuer, _ := cmd.Flags().GetString("issuer"); issuer != "" {
			ctr.SetTokenValidator(auth.NewTokenValidator(issuer))
		}

		// 4. 初始化链路追踪
		if cfg.Tracing.Enabled {
			if err := api.InitTracing("agrivision-provenance", cfg.Tracing.JaegerEndpoint); err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = api.ShutdownTracing(ctx)
			}()
		}

		// 5. 启动后台组件
		go ctr.Hub().Run()
		if worker := ctr.AnchorWorker(); worker != nil {
			worker.Start()
		}
		collector := metrics.NewCollector(ctr.DB(), 30*time.Second)
		collector.Start()
		defer collector.Stop()

		// 6. 设置路由
		router := api.SetupRoutes(&api.RouterDeps{
			Config:        cfg,
			DB:            ctr.DB(),
			Hub:           ctr.Hub(),
			Validator:     ctr.TokenValidator(),
			Classifier:    ctr.Classifier(),
			SampleService: ctr.SampleService(),
			BatchService:  ctr.BatchService(),
			AuditService:  ctr.AuditService(),
		})

		// 7. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		// 启动服务器（在 goroutine 中）
		go func() {
			log.Printf("Server starting on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		log.Println("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("issuer", "", "OIDC issuer URL for JWT validation (empty enables dev header auth)")
}
