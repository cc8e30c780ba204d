package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cozy-creator/brandgen/internal/app"
	"github.com/cozy-creator/brandgen/internal/commands"
	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/types"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"
)

var execCmd = &cobra.Command{
	Use:   "exec <command> [json]",
	Short: "Run a command and print its result envelope",
	Long: `Run a command and print its result envelope as JSON.

The input is a JSON object given as the second argument, or read from
stdin when it is "-". Missing fields take their defaults. The process
exits with status 1 when the command fails.`,
	Example: `  brandgen exec asset.generate '{"prompt": "a paper plane", "count": 2}' --wait
  brandgen exec lora.list '{"active_only": true}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExec,
}

func init() {
	flags := execCmd.Flags()
	flags.String("user", commands.AnonymousUser, "User id the command runs as")
	flags.Bool("wait", false, "Process a generated job in-process and wait for it to finish")
	flags.Duration("timeout", 5*time.Minute, "How long --wait waits for a job")
}

func runExec(cmd *cobra.Command, args []string) error {
	input, err := readCommandInput(cmd.InOrStdin(), args[1:])
	if err != nil {
		return err
	}
	user, _ := cmd.Flags().GetString("user")
	wait, _ := cmd.Flags().GetBool("wait")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg := config.MustGetConfig()
	a, err := app.NewApp(cfg, cliOptions(cfg)...)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commands.WithUserID(cmd.Context(), user)
	res := a.Commands().Execute(ctx, args[0], input)

	if wait && res.Success {
		if out, ok := res.Data.(commands.GenerateOutput); ok {
			res = waitForJob(ctx, a, out.Job.ID, timeout, cmd.ErrOrStderr())
		}
	}

	return printEnvelope(cmd.OutOrStdout(), res)
}

// cliOptions builds a short-lived app: durable history, an in-process
// queue unless Pulsar is configured, and synchronous training.
func cliOptions(cfg *config.Config) []app.OptionFunc {
	options := []app.OptionFunc{
		app.WithDBInitialization(),
		app.WithMQ(),
		app.WithFileUploader(),
	}
	if cfg.OpenAI != nil && cfg.OpenAI.SafetyFilter {
		options = append(options, app.WithSafetyFilter())
	}
	return options
}

func readCommandInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read input from stdin: %w", err)
		}
		return data, nil
	}
	return []byte(args[0]), nil
}

func printEnvelope(w io.Writer, res *result.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(w, string(data))

	if !res.Success {
		return errCommandFailed
	}
	return nil
}

// waitForJob runs the generation processor until the job reaches a
// terminal state, drawing its progress, and returns the job's final
// status envelope.
func waitForJob(ctx context.Context, a *app.App, jobID string, timeout time.Duration, out io.Writer) *result.Result {
	processor, err := a.NewProcessor()
	if err != nil {
		a.Logger.Error("cannot process job in-process", zap.Error(err))
		return result.Fail(result.CodeServiceUnavail, "Generation processor could not start", "", result.WithDetails(err.Error()))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	go func() {
		if err := processor.Run(ctx); err != nil {
			a.Logger.Error("generation processor stopped", zap.Error(err))
		}
	}()

	progress := mpb.NewWithContext(ctx,
		mpb.WithOutput(out),
		mpb.WithWidth(60),
		mpb.WithRefreshRate(180*time.Millisecond),
	)
	bar := progress.AddBar(100,
		mpb.PrependDecorators(
			decor.Name("generating", decor.WC{W: 12, C: decor.DidentRight}),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Elapsed(decor.ET_STYLE_GO),
		),
	)

	timedOut := pollJob(ctx, a, jobID, bar)
	progress.Wait()

	if timedOut {
		return result.FromTemplate(result.CodeGenerationTimeout,
			result.WithDetails(fmt.Sprintf("job %s did not finish within %s", jobID, timeout)))
	}
	return a.Commands().ExecuteValue(ctx, "job.status", map[string]any{"job_id": jobID})
}

func pollJob(ctx context.Context, a *app.App, jobID string, bar *mpb.Bar) (timedOut bool) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := a.Jobs().Get(jobID)
		if err != nil {
			bar.Abort(false)
			return false
		}

		bar.SetCurrent(int64(job.Progress))
		if job.Status.Terminal() {
			if job.Status == types.JobStatusComplete {
				bar.SetCurrent(100)
			} else {
				bar.Abort(false)
			}
			return false
		}

		select {
		case <-ctx.Done():
			bar.Abort(false)
			return true
		case <-ticker.C:
		}
	}
}
