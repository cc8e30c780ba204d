package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/db"
	"github.com/cozy-creator/brandgen/internal/db/repository"
	"github.com/cozy-creator/brandgen/internal/generation"
	"github.com/cozy-creator/brandgen/internal/mq"
	"github.com/cozy-creator/brandgen/internal/ratelimit"
	"github.com/cozy-creator/brandgen/internal/services/filestorage"
	"github.com/cozy-creator/brandgen/internal/utils/secretutil"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, database, storage, queue and generator backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		checks := runChecks(ctx, config.MustGetConfig())
		if !printChecks(cmd.OutOrStdout(), checks) {
			return errCommandFailed
		}
		return nil
	},
}

type check struct {
	Name   string
	Detail string
	Err    error
}

func runChecks(ctx context.Context, cfg *config.Config) []check {
	return []check{
		checkConfig(cfg),
		checkCredentials(cfg),
		checkDatabase(ctx, cfg),
		checkStorage(cfg),
		checkQueue(cfg),
		checkGenerator(cfg),
		checkRateLimiter(ctx, cfg),
	}
}

func checkConfig(cfg *config.Config) check {
	return check{
		Name:   "config",
		Detail: fmt.Sprintf("environment=%s home=%s", cfg.Environment, cfg.HomeDir),
	}
}

func checkCredentials(cfg *config.Config) check {
	keys := map[string]string{"jwt": cfg.Auth.JWTSecret}
	for name, c := range map[string]*config.APIKeyConfig{
		"huggingface": cfg.HuggingFace,
		"fireworks":   cfg.Fireworks,
		"replicate":   cfg.Replicate,
	} {
		if c != nil {
			keys[name] = c.APIKey
		}
	}
	if cfg.OpenAI != nil {
		keys["openai"] = cfg.OpenAI.APIKey
	}

	var parts []string
	for _, name := range []string{"jwt", "openai", "huggingface", "fireworks", "replicate"} {
		if key := keys[name]; key != "" {
			parts = append(parts, name+"="+secretutil.Mask(key, 3, 4))
		}
	}
	if len(parts) == 0 {
		return check{Name: "credentials", Detail: "none configured"}
	}
	return check{Name: "credentials", Detail: strings.Join(parts, " ")}
}

func checkDatabase(ctx context.Context, cfg *config.Config) check {
	c := check{Name: "database", Detail: cfg.DB.Driver}

	driver, err := db.NewConnection(ctx, cfg)
	if err != nil {
		c.Err = err
		return c
	}
	defer driver.Close()

	if err := driver.GetDB().PingContext(ctx); err != nil {
		c.Err = fmt.Errorf("ping failed: %w", err)
		return c
	}
	if err := repository.CreateSchema(ctx, driver.GetDB()); err != nil {
		c.Err = fmt.Errorf("schema check failed: %w", err)
	}
	return c
}

func checkStorage(cfg *config.Config) check {
	c := check{Name: "storage", Detail: cfg.FilesystemType}
	_, c.Err = filestorage.NewFileStorage(cfg)
	return c
}

func checkQueue(cfg *config.Config) check {
	c := check{Name: "queue"}

	queue, err := mq.NewMQ(cfg, zap.NewNop())
	if err != nil {
		c.Err = err
		return c
	}
	c.Detail = queue.Type()
	queue.Close()
	return c
}

func checkGenerator(cfg *config.Config) check {
	c := check{Name: "generator"}

	generator, err := generation.NewGenerator(cfg)
	if err != nil {
		c.Err = err
		return c
	}
	c.Detail = generator.Name()
	return c
}

func checkRateLimiter(ctx context.Context, cfg *config.Config) check {
	c := check{Name: "rate limiter", Detail: "disabled"}
	if !cfg.RateLimit.Enabled {
		return c
	}

	c.Detail = "in-memory"
	if cfg.Redis != nil {
		c.Detail = "redis"
	}
	_, c.Err = ratelimit.NewLimiter(ctx, cfg, nil)
	return c
}

// printChecks reports whether every check passed.
func printChecks(w io.Writer, checks []check) bool {
	ok := true
	for _, c := range checks {
		if c.Err != nil {
			ok = false
			fmt.Fprintf(w, "✗ %-13s %s: %v\n", c.Name, c.Detail, c.Err)
			continue
		}
		fmt.Fprintf(w, "✓ %-13s %s\n", c.Name, c.Detail)
	}
	return ok
}
