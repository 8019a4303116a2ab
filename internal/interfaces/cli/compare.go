package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/pdf"
)

// CompareResult is the output of `docrev compare`.
type CompareResult struct {
	Previous          int             `json:"previous_comments"`
	Current           int             `json:"current_comments"`
	NewComments       int             `json:"new_comments"`
	CarryoverComments int             `json:"carryover_comments"`
	Links             []*comment.Link `json:"links"`
}

func (r *CompareResult) TableHeaders() []string {
	return []string{"From #", "To #", "Type", "Score", "Current text"}
}

func (r *CompareResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Links))
	for _, l := range r.Links {
		from, to, text := "", "", ""
		if l.Source != nil {
			from = strconv.Itoa(l.Source.SerialNumber)
		}
		if l.Target != nil {
			to = strconv.Itoa(l.Target.SerialNumber)
			text = truncate(l.Target.Text, 60)
		}
		rows = append(rows, []string{from, to, string(l.LinkType), strconv.FormatFloat(l.SimilarityScore, 'f', 2, 64), text})
	}
	return rows
}

func newCompareCmd() *cobra.Command {
	var (
		threshold float64
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "compare <previous.pdf> <current.pdf>",
		Short: "Link the comments of two revisions without storing anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			pipeline := newPipeline(cliCtx)
			opener := pdf.NewOpener()
			sets := make([][]*comment.Comment, len(args))

			g, gctx := errgroup.WithContext(ctx)
			for i, path := range args {
				i, path := i, path
				g.Go(func() error {
					data, err := readDocument(path)
					if err != nil {
						return err
					}
					comments, _, err := pipeline.ExtractBytes(gctx, documentIDFor(path), opener, data)
					if err != nil {
						return err
					}
					sets[i] = comments
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			result := compareSets(ctx, cliCtx, sets[0], sets[1], threshold, all)
			if err := PrintResult(cmd, result); err != nil {
				return err
			}
			if cliCtx.OutputFormat != "json" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d previous, %d current: %d new, %d carried over\n",
					result.Previous, result.Current, result.NewComments, result.CarryoverComments)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity 0-100 (default: engine.link_threshold)")
	cmd.Flags().BoolVar(&all, "all", false, "show every scored pair instead of the persistable links")
	return cmd
}

func compareSets(_ context.Context, cliCtx *CLIContext, previous, current []*comment.Comment, threshold float64, all bool) *CompareResult {
	if threshold <= 0 {
		threshold = cliCtx.Config.Engine.LinkThreshold
	}
	linker := comment.NewLinker(comment.NewMatcher(cliCtx.Config.Engine.SubstringBoost), threshold)
	detected := linker.DetectLinks(previous, current)
	persistable := comment.SelectPersistable(detected)

	carry := comment.CarryoverCount(persistable)
	shown := persistable
	if all {
		shown = detected
	}
	return &CompareResult{
		Previous:          len(previous),
		Current:           len(current),
		NewComments:       len(current) - carry,
		CarryoverComments: carry,
		Links:             shown,
	}
}

//Personal.AI order the ending
