package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cozy-creator/brandgen/cmd/brandgen/run"
	"github.com/cozy-creator/brandgen/internal/app"
	"github.com/cozy-creator/brandgen/internal/commands"
	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/mcpserver"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve every command as an MCP tool over stdio",
	RunE:  runMCP,
}

func init() {
	mcpCmd.Flags().String("user", commands.AnonymousUser, "User id tool calls run as")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	user, _ := mcpCmd.Flags().GetString("user")
	cfg := config.MustGetConfig()

	a, err := app.NewApp(cfg, run.Options(cfg)...)
	if err != nil {
		return err
	}
	defer a.Close()

	processor, err := a.NewProcessor()
	if err != nil {
		return err
	}

	server, err := mcpserver.NewServer(a.Commands(), Version, user, a.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return server.Serve(ctx, os.Stdin, os.Stdout)
	})
	g.Go(func() error {
		return processor.Run(ctx)
	})
	return g.Wait()
}
