package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/orgdesk/orgdesk/internal/config"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/server"
	"github.com/orgdesk/orgdesk/internal/service"
	"github.com/orgdesk/orgdesk/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orgdesk API server",
		Long:  "Start the HTTP server that exposes the workflow and administration APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(dev bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if dev || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)

	dir := cfg.Database.DataDir
	if dir == "" {
		dir = resolveDataDir()
	}
	st, err := store.Open(store.Options{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		DataDir: dir,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	logger.Info("store initialized", "driver", cfg.Database.Driver, "data_dir", dir)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		if !dev {
			return fmt.Errorf("auth.jwt_secret must be set (or pass --dev for a throwaway secret)")
		}
		jwtSecret = "orgdesk-dev-secret-change-me"
		logger.Warn("using development JWT secret")
	}

	authSvc := service.NewAuthService(st, jwtSecret, cfg.Auth.TokenTTL)
	audit := service.NewAuditLogger(st, logger)
	resolver := rbac.NewResolver(st)
	profile := rbac.NewProfileResolver(cfg.RoleNames)
	matrix := rbac.NewMatrix(st, audit)

	svcs := server.Services{
		Auth:       authSvc,
		Audit:      audit,
		Tasks:      service.NewTaskService(st, profile, audit),
		Meetings:   service.NewMeetingService(st, profile, audit),
		Checklists: service.NewChecklistService(st, profile, audit),
		Reports:    service.NewReportService(st, profile, audit),
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.CORSOrigins = cfg.Server.CORSOrigins
	srvCfg.RateLimit = cfg.Server.RateLimit
	srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout

	srv := server.New(srvCfg, st, resolver, matrix, svcs, logger)

	fmt.Printf("→ orgdesk\n")
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
