package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"pagetags/cache"
	"pagetags/server"
)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}
			gin.SetMode(conf.Server.Mode)

			s, db, err := openStore(conf)
			if err != nil {
				return err
			}
			defer closeDB(db)

			pageCache, err := cache.New(conf.Cache)
			if err != nil {
				return err
			}
			switch c := pageCache.(type) {
			case *cache.FileStore:
				if err := c.ClearOld(conf.Cache.TTL); err != nil {
					log.Printf("cache: failed to clear old entries: %v", err)
				}
			case *cache.RedisStore:
				defer c.Close()
			}

			srv := &http.Server{
				Addr:              conf.Addr(),
				Handler:           server.NewRouter(conf, s, pageCache),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("Starting server on %s...", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Println("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
