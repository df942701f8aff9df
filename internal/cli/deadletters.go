package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/duongtq/conveyor/internal/core/config"
	redisclient "github.com/duongtq/conveyor/internal/infra/redis"
	"github.com/duongtq/conveyor/internal/infra/storage"
	"github.com/duongtq/conveyor/internal/infra/storage/postgres"
)

var deadLettersCmd = &cobra.Command{
	Use:   "deadletters",
	Short: "Inspect and manage dead-lettered records",
}

var deadLettersListCmd = &cobra.Command{
	Use:   "list [pipeline]",
	Short: "List pending dead letters for a pipeline",
	Args:  cobra.ExactArgs(1),
	Run:   runDeadLettersList,
}

var deadLettersRequeueCmd = &cobra.Command{
	Use:   "requeue [id]",
	Short: "Mark a dead letter as requeued into the pipeline",
	Args:  cobra.ExactArgs(1),
	Run:   runDeadLettersRequeue,
}

var deadLettersPurgeCmd = &cobra.Command{
	Use:   "purge [id]",
	Short: "Remove a dead letter permanently",
	Args:  cobra.ExactArgs(1),
	Run:   runDeadLettersPurge,
}

func init() {
	deadLettersCmd.AddCommand(deadLettersListCmd)
	deadLettersCmd.AddCommand(deadLettersRequeueCmd)
	deadLettersCmd.AddCommand(deadLettersPurgeCmd)
	rootCmd.AddCommand(deadLettersCmd)
}

// openDeadLetterRepo connects to whichever dead-letter store the config
// selects. Admin commands need a persistent store; in-memory mode has
// nothing to inspect.
func openDeadLetterRepo(ctx context.Context) (storage.DeadLetterRepository, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch {
	case cfg.Database.URL != "":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewDeadLetterRepo(db), func() { _ = db.Close() }, nil
	case cfg.Redis.Addr != "":
		client, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisclient.NewDeadLetterRepo(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("no persistent dead-letter store configured")
	}
}

func runDeadLettersList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	repo, cleanup, err := openDeadLetterRepo(ctx)
	if err != nil {
		slog.Error("Failed to open dead-letter store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	letters, err := repo.GetAll(ctx, args[0])
	if err != nil {
		slog.Error("Failed to list dead letters", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tSTAGE\tUNIT\tATTEMPTS\tRETRIES\tERROR")
	for _, dl := range letters {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			dl.ID, dl.Stage, dl.ExecutingUnit, dl.Attempts, dl.RetryCount, dl.Error)
	}
	_ = w.Flush()
}

func runDeadLettersRequeue(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	repo, cleanup, err := openDeadLetterRepo(ctx)
	if err != nil {
		slog.Error("Failed to open dead-letter store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := repo.MarkRequeued(ctx, args[0]); err != nil {
		slog.Error("Failed to requeue dead letter", "id", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Printf("Dead letter %s marked as requeued\n", args[0])
}

func runDeadLettersPurge(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	repo, cleanup, err := openDeadLetterRepo(ctx)
	if err != nil {
		slog.Error("Failed to open dead-letter store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := repo.Purge(ctx, args[0]); err != nil {
		slog.Error("Failed to purge dead letter", "id", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Printf("Dead letter %s purged\n", args[0])
}
