package stemctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stemd/pkg/types"
)

// Main executes the command tree and exits non-zero on error.
func Main() {
	if err := buildRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stemctl:", err)
		os.Exit(1)
	}
}

// buildRootCmd constructs the cobra tree. Command output goes to out so
// tests can capture it.
func buildRootCmd(out io.Writer) *cobra.Command {
	var (
		server  string
		timeout time.Duration
		client  *Client
	)
	root := &cobra.Command{
		Use:           "stemctl",
		Short:         "Operator client for a running stemd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", envStr("STEMCTL_SERVER", defaultServer), "Base URL of the stemd daemon (defaults STEMCTL_SERVER)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request HTTP timeout")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		client = NewClient(server, timeout)
	}

	healthCmd := &cobra.Command{Use: "health", Short: "Check daemon liveness and GPU visibility", RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	}}

	statusCmd := &cobra.Command{Use: "status", Short: "Show device, model residency, job counts and queue depth", RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	}}

	loadCmd := &cobra.Command{Use: "load <model>", Short: "Load a model ahead of the first job", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.LoadModel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	}}

	unloadCmd := &cobra.Command{Use: "unload <model>", Short: "Unload a model and free its memory", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.UnloadModel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	}}

	var (
		stems int
		wait  bool
		poll  time.Duration
	)
	submitCmd := &cobra.Command{Use: "submit <file>", Short: "Submit an audio file for separation", Example: "  stemctl submit /music/song.wav --wait", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		ack, err := client.Submit(cmd.Context(), types.SeparationRequest{FilePath: args[0], StemCount: stems})
		if err != nil {
			return err
		}
		if !wait {
			return printJSON(out, ack)
		}
		rec, err := client.WaitForJob(cmd.Context(), ack.JobID, poll)
		if err != nil {
			return err
		}
		if err := printJSON(out, rec); err != nil {
			return err
		}
		if rec.Status != types.StatusCompleted {
			return fmt.Errorf("job %s ended %s", ack.JobID, rec.Status)
		}
		return nil
	}}
	submitCmd.Flags().IntVar(&stems, "stems", 0, "Requested stem count (0 uses the server default)")
	submitCmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job reaches a terminal status")
	submitCmd.Flags().DurationVar(&poll, "poll", time.Second, "Polling interval used with --wait")

	jobCmd := &cobra.Command{Use: "job <id>", Short: "Show one job's record", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := client.Job(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(out, rec)
	}}

	cancelCmd := &cobra.Command{Use: "cancel <id>", Short: "Cancel a job (best effort)", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.Cancel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	}}

	root.AddCommand(healthCmd, statusCmd, loadCmd, unloadCmd, submitCmd, jobCmd, cancelCmd)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
