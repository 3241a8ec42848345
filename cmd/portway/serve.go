package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/portwayhq/portway"
	"github.com/portwayhq/portway/core"
	"github.com/portwayhq/portway/httpapi"
	"github.com/portwayhq/portway/internal/appconfig"
	"github.com/portwayhq/portway/internal/protocols"
	"github.com/portwayhq/portway/schema"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			var extra []schema.WorkspaceDescriptor
			if cfg.Protocols.ManifestPath != "" {
				extra, err = protocols.LoadManifest(cfg.Protocols.ManifestPath)
				if err != nil {
					return err
				}
				logger.Info("protocol manifest loaded", "path", cfg.Protocols.ManifestPath, "protocols", len(extra))
			}

			serverCfg := portway.ServerConfig{
				Service: schema.ServiceConfig{
					TabTitleMax:    cfg.Service.TabTitleMax,
					TabTitleSuffix: cfg.Service.TabTitleSuffix,
				},
				HTTP: httpapi.Config{
					Addr:     cfg.HTTP.Addr,
					BasePath: cfg.HTTP.BasePath,
				},
				ExtraProtocols: extra,
				HubHistory:     cfg.HTTP.HistorySize,
			}
			server, err := portway.New(serverCfg, portway.ServerDeps{
				ServiceDeps: core.ServiceDeps{Logger: logger},
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("http server listening", "addr", cfg.HTTP.Addr)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "override http listen address")
	return cmd
}
