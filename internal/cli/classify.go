package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go-image-identifier/internal/container"
	apperrors "go-image-identifier/internal/errors"
	"go-image-identifier/pkg/models"
)

type classifyFlags struct {
	json    bool
	workers int
	topK    int
}

func newClassifyCmd(root *rootFlags, opts []container.Option) *cobra.Command {
	flags := &classifyFlags{}

	cmd := &cobra.Command{
		Use:   "classify <image>...",
		Short: "Identify images given as files or URLs and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if flags.workers > 0 {
				cfg.BatchWorkers = flags.workers
			}
			if flags.topK > 0 {
				cfg.TopK = flags.topK
			}

			c, err := buildContainer(cfg, false, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			loadCtx, cancel := context.WithTimeout(ctx, cfg.ModelLoadTimeout)
			defer cancel()
			model, err := c.Provider().Load(loadCtx)
			if err != nil {
				return apperrors.NewModelLoadError("failed to load model", err)
			}
			defer model.Close()

			refs := make([]models.ImageReference, len(args))
			for i, a := range args {
				refs[i] = models.ImageReference(a)
			}

			responses := c.Service().IdentifyBatch(ctx, model, refs, cfg.BatchWorkers)

			out := cmd.OutOrStdout()
			if flags.json {
				err = writeJSON(out, responses)
			} else {
				writeText(out, responses)
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range responses {
				if r.Error != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images could not be identified", failed, len(responses))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.json, "json", false, "print results as JSON")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "number of concurrent identifications (default BATCH_WORKERS or CPU count)")
	cmd.Flags().IntVarP(&flags.topK, "top-k", "k", 0, "number of predictions per image (default TOP_K)")
	return cmd
}

func writeJSON(w io.Writer, responses []models.IdentifyResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(responses)
}

func writeText(w io.Writer, responses []models.IdentifyResponse) {
	for i, r := range responses {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, r.Reference)
		if r.Error != nil {
			fmt.Fprintf(w, "  Error: %s\n", r.Error.Message)
			continue
		}
		for _, p := range r.Predictions {
			line := fmt.Sprintf("  %-30s Confidence level: %s", p.Label, p.Percent())
			if p.BestGuess {
				line += "  Best Guess"
			}
			fmt.Fprintln(w, line)
		}
	}
}
