package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cozy-creator/brandgen/internal/app"
	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the REST server, the generation processor and the trainer",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", config.DefaultPort, "Port to run the server on")
	flags.String("host", config.DefaultHost, "Host to run the server on")
	flags.String("filesystem-type", config.FilesystemLocal, "Filesystem type: 'local' or 's3'")
	flags.String("public-dir", "", "Path where static files should be served from. Relative paths are relative to the current working directory.")

	flags.String("db-driver", config.DBDriverSQLite, "Database driver: 'sqlite', 'pg' or 'libsql'")
	flags.String("db-dsn", "", "Database DSN (Connection URL or Path)")
	flags.String("pulsar-url", "", "URL of the pulsar broker. Example: pulsar+ssl://my-cluster.streamnative.cloud:6651")
	flags.String("redis-url", "", "Redis URL for shared rate limits. Example: redis://localhost:6379/0")
	flags.String("generator-backend", "mock", "Image backend: mock, huggingface, fireworks, replicate or openai")
	flags.Bool("auth-required", false, "Reject API requests without a valid bearer token")

	viper.BindPFlag("port", flags.Lookup("port"))
	viper.BindPFlag("host", flags.Lookup("host"))
	viper.BindPFlag("filesystem_type", flags.Lookup("filesystem-type"))
	viper.BindPFlag("public_dir", flags.Lookup("public-dir"))
	viper.BindPFlag("db.driver", flags.Lookup("db-driver"))
	viper.BindPFlag("db.dsn", flags.Lookup("db-dsn"))
	viper.BindPFlag("pulsar.url", flags.Lookup("pulsar-url"))
	viper.BindPFlag("redis.url", flags.Lookup("redis-url"))
	viper.BindPFlag("generator.backend", flags.Lookup("generator-backend"))
	viper.BindPFlag("auth.required", flags.Lookup("auth-required"))
}

// Options are the app options shared by every long-lived brandgen process.
func Options(cfg *config.Config) []app.OptionFunc {
	options := []app.OptionFunc{
		app.WithTracing(),
		app.WithDBInitialization(),
		app.WithMQ(),
		app.WithFileUploader(),
		app.WithTrainer(),
		app.WithRateLimiter(),
	}
	if cfg.OpenAI != nil && cfg.OpenAI.SafetyFilter {
		options = append(options, app.WithSafetyFilter())
	}
	return options
}

func runApp(cmd *cobra.Command, _ []string) error {
	cfg := config.MustGetConfig()

	app, err := app.NewApp(cfg, Options(cfg)...)
	if err != nil {
		return err
	}
	defer app.Close()

	processor, err := app.NewProcessor()
	if err != nil {
		return fmt.Errorf("error setting up generation processor: %w", err)
	}

	server, err := server.NewServer(cfg)
	if err != nil {
		return err
	}
	server.SetupRoutes(app)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("server listening", zap.String("addr", server.Addr()))
		return server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		return server.Stop(context.Background())
	})
	g.Go(func() error {
		return processor.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	app.Logger.Info("brandgen stopped")
	return nil
}
