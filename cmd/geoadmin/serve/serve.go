package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kcmvp/geoadmin/app"
	"github.com/kcmvp/geoadmin/auth"
	"github.com/kcmvp/geoadmin/cmd/internal"
	"github.com/kcmvp/geoadmin/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ServeCmd starts the admin panel.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin panel HTTP server.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		settings, err := internal.Settings(cmd).Get()
		if err != nil {
			return err
		}
		env, err := internal.Setup(ctx, settings, app.Settings.Validate)
		if err != nil {
			return err
		}
		defer env.Close()

		ln, err := net.Listen("tcp", settings.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", settings.Server.Addr, err)
		}
		return Serve(ctx, env, ln)
	},
}

// Serve runs the panel on ln until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, env *internal.Env, ln net.Listener) error {
	s := env.Settings
	gin.SetMode(s.Server.Mode)

	reg, err := internal.Registry()
	if err != nil {
		return err
	}
	sessions := auth.NewCookieSessions([]byte(s.Session.Secret), []byte(s.Session.EncryptionKey), auth.CookieOptions{
		Name:   s.Session.Cookie,
		Secure: s.Session.Secure,
		MaxAge: s.Session.MaxAge,
	})
	authn := auth.New(sessions, auth.WithWindow(s.Session.Window), auth.WithLogger(env.Logger))

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           web.NewRouter(reg, env.Pool, authn, env.Logger),
		ReadHeaderTimeout: s.Server.ReadHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
	}

	eg.Go(func() error {
		env.Logger.Info("geoadmin listening", "addr", ln.Addr().String(), "tables", reg.Names())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Server.ShutdownTimeout)
		defer cancel()
		env.Logger.Info("shutting down", "timeout", s.Server.ShutdownTimeout)
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
