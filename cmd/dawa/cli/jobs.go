package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/dawa-pos/dawa/jobs"
)

// Enqueuer submits named jobs. *jobs.Client satisfies it.
type Enqueuer interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
}

// QueueInspector reads queue state. *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// JobsCLI implements "dawa jobs trigger <name>" and "dawa jobs stats".
type JobsCLI struct {
	enqueuer  Enqueuer
	inspector QueueInspector
	stdout    io.Writer
	stderr    io.Writer
}

// NewJobsCLI wires the command to its queue dependencies and output streams.
func NewJobsCLI(enqueuer Enqueuer, inspector QueueInspector, stdout, stderr io.Writer) *JobsCLI {
	return &JobsCLI{enqueuer: enqueuer, inspector: inspector, stdout: stdout, stderr: stderr}
}

const jobsUsage = `usage:
  dawa jobs trigger <name>   enqueue a job now
  dawa jobs stats [-json]    show default queue counters

jobs: ledger:reconcile, inventory:expiry-scan, idempotency:cleanup
`

// Run dispatches args and returns the process exit code.
func (c *JobsCLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, jobsUsage)
		return 2
	}
	switch args[0] {
	case "trigger":
		return c.trigger(ctx, args[1:])
	case "stats":
		return c.stats(args[1:])
	default:
		fmt.Fprintf(c.stderr, "unknown jobs command %q\n%s", args[0], jobsUsage)
		return 2
	}
}

func (c *JobsCLI) trigger(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprint(c.stderr, jobsUsage)
		return 2
	}
	info, err := c.enqueuer.Trigger(ctx, args[0])
	if errors.Is(err, jobs.ErrUnknownJob) {
		fmt.Fprintf(c.stderr, "%v\n", err)
		return 2
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "enqueue %s: %v\n", args[0], err)
		return 1
	}
	fmt.Fprintf(c.stdout, "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	return 0
}

func (c *JobsCLI) stats(args []string) int {
	fs := flag.NewFlagSet("jobs stats", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		fmt.Fprintf(c.stderr, "inspect queue: %v\n", err)
		return 1
	}
	stats := jobs.QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	if *asJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(c.stderr, "encode: %v\n", err)
			return 1
		}
		return 0
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY")
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}
