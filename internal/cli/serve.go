package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PhelGc/roadsphere/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RoadSphere web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		a.logger.Info("RoadSphere iniciando...",
			zap.String("version", version),
			zap.String("storage", a.cfg.Storage.Driver),
			zap.String("backend", a.cfg.Gemini.Backend))

		srv := web.NewServer(web.Config{
			Addr:           a.cfg.HTTP.Addr,
			SessionCookie:  a.cfg.HTTP.SessionCookie,
			UploadMaxBytes: a.cfg.HTTP.UploadMaxBytes,
		}, a.sessions, a.logger)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Start(gctx)
		})
		g.Go(func() error {
			a.sessions.Run(gctx)
			return nil
		})
		g.Go(func() error {
			// Al apagar se detienen las animaciones antes de cerrar el storage
			<-gctx.Done()
			a.sessions.Close()
			return nil
		})
		return g.Wait()
	},
}
