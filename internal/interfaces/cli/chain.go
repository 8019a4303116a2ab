package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/DocRev-Intelligence/internal/application/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	domainRevision "github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Table views
// ─────────────────────────────────────────────────────────────────────────────

type chainTable struct {
	*revision.ChainView
}

func (v chainTable) TableHeaders() []string {
	return []string{"Rev", "Label", "Status", "New", "Carryover", "Resolved", "Complexity", "Hours", "Submitted", "ID"}
}

func (v chainTable) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Revisions))
	for _, r := range v.Revisions {
		rows = append(rows, []string{
			strconv.Itoa(r.RevisionNumber),
			r.Label,
			string(r.Status),
			strconv.Itoa(r.NewCommentCount),
			strconv.Itoa(r.CarryoverCommentCount),
			strconv.Itoa(r.ResolvedCommentCount),
			strconv.FormatFloat(r.ComplexityScore, 'f', 1, 64),
			strconv.FormatFloat(r.EstimatedHours, 'f', 1, 64),
			r.SubmittedDate.Format("2006-01-02"),
			r.ID,
		})
	}
	return rows
}

type linkTable []*comment.Link

func (t linkTable) TableHeaders() []string {
	return []string{"Source comment", "Target comment", "Type", "Score"}
}

func (t linkTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, l := range t {
		rows = append(rows, []string{l.SourceCommentID, l.TargetCommentID, string(l.LinkType),
			strconv.FormatFloat(l.SimilarityScore, 'f', 2, 64)})
	}
	return rows
}

func printChainSummary(cmd *cobra.Command, c *domainRevision.Chain) {
	cliCtx, err := GetCLIContext(cmd)
	if err == nil && cliCtx.OutputFormat == "json" {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chain %s  %q\n", c.ID, c.Title)
	fmt.Fprintf(out, "Revisions %d/%d  Risk %.1f %s\n", c.CurrentRevisionNumber, c.MaxAllowedRevisions, c.RiskScore, riskLabel(string(c.RiskLevel)))
	if c.PredictedCompletionDate != nil {
		fmt.Fprintf(out, "Predicted completion %s\n", c.PredictedCompletionDate.Format("2006-01-02"))
	}
	if c.Recommendation != "" {
		fmt.Fprintf(out, "\n%s\n", c.Recommendation)
	}
	if c.Archived {
		fmt.Fprintln(out, "(archived)")
	}
}

// chainService resolves the chain service of the configured backend.
func chainService(cmd *cobra.Command) (*CLIContext, revision.ChainService, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	backend, err := cliCtx.Backend(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return cliCtx, backend.Chains(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

func newChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Manage revision chains",
	}
	cmd.AddCommand(
		newChainCreateCmd(),
		newChainAddCmd(),
		newChainStatusCmd(),
		newChainResolveCmd(),
		newChainAnalyzeCmd(),
		newChainShowCmd(),
		newChainLinksCmd(),
		newChainArchiveCmd(),
	)
	return cmd
}

func newChainCreateCmd() *cobra.Command {
	var (
		title        string
		maxRevisions int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start an empty revision chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, chains, err := chainService(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			if maxRevisions <= 0 {
				maxRevisions = cliCtx.Config.Engine.DefaultMaxRevisions
			}
			chain, err := chains.CreateChain(ctx, title, maxRevisions)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, chain)
			}
			PrintSuccess(cmd, fmt.Sprintf("chain %s created (max %d revisions)", chain.ID, chain.MaxAllowedRevisions))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "chain title [REQUIRED]")
	cmd.Flags().IntVar(&maxRevisions, "max-revisions", 0, "allowed revisions (default: engine.default_max_revisions)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newChainAddCmd() *cobra.Command {
	var (
		documentID string
		file       string
		label      string
		parent     string
		number     int
		submitted  string
	)
	cmd := &cobra.Command{
		Use:   "add <chain-id>",
		Short: "Attach a document as the chain's next revision",
		Long: "Attach an extracted document to a chain.  With --file the PDF is extracted and\n" +
			"stored first; otherwise --document must name an already extracted document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()
			backend, err := cliCtx.Backend(ctx)
			if err != nil {
				return err
			}

			if file != "" {
				if documentID == "" {
					documentID = documentIDFor(file)
				}
				data, err := readDocument(file)
				if err != nil {
					return err
				}
				if _, err := backend.Ingestion().IngestBytes(ctx, documentID, data); err != nil {
					return err
				}
			}
			if documentID == "" {
				return errors.NewValidation("--document or --file is required")
			}

			in := revision.AddRevisionInput{
				ChainID:        args[0],
				DocumentID:     documentID,
				Label:          label,
				RevisionNumber: number,
			}
			if parent != "" {
				in.ParentRevisionID = &parent
			}
			if submitted != "" {
				t, err := time.Parse("2006-01-02", submitted)
				if err != nil {
					return errors.NewValidation("--submitted must be YYYY-MM-DD").WithDetail(submitted)
				}
				in.SubmittedDate = &t
			}

			res, err := backend.Chains().AddRevision(ctx, in)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, res)
			}
			r := res.Revision
			PrintSuccess(cmd, fmt.Sprintf("revision %d (%s) added: %d new, %d carried over, %d links",
				r.RevisionNumber, r.ID, r.NewCommentCount, r.CarryoverCommentCount, len(res.Links)))
			printChainSummary(cmd, res.Chain)
			return nil
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "document ID of extracted comments")
	cmd.Flags().StringVar(&file, "file", "", "PDF to extract and attach")
	cmd.Flags().StringVar(&label, "label", "", "revision label (default: Rev <n>)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent revision ID")
	cmd.Flags().IntVar(&number, "number", 0, "expected revision number (default: next)")
	cmd.Flags().StringVar(&submitted, "submitted", "", "submission date YYYY-MM-DD (default: today)")
	return cmd
}

func newChainStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <revision-id> <status>",
		Short: "Move a revision through its review lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, chains, err := chainService(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			status, err := domainRevision.ParseStatus(args[1])
			if err != nil {
				return err
			}
			rev, err := chains.UpdateStatus(ctx, args[0], status)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, rev)
			}
			PrintSuccess(cmd, fmt.Sprintf("revision %s is %s", rev.ID, rev.Status))
			return nil
		},
	}
}

func newChainResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <revision-id> <resolved-count>",
		Short: "Record how many comments of a revision are resolved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, chains, err := chainService(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			n, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.NewValidation("resolved count must be an integer").WithDetail(args[1])
			}
			rev, err := chains.RecordResolutions(ctx, args[0], n)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, rev)
			}
			PrintSuccess(cmd, fmt.Sprintf("revision %s: %d of %d comments resolved", rev.ID, rev.ResolvedCommentCount, rev.TotalComments()))
			return nil
		},
	}
}

func newChainAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <chain-id>",
		Short: "Recompute the chain's risk assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, chains, err := chainService(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			analysis, err := chains.AnalyzeChain(ctx, args[0])
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, analysis)
			}
			printChainSummary(cmd, analysis.Chain)
			return nil
		},
	}
}

func newChainShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <chain-id>",
		Short: "Show a chain and its revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, chains, err := chainService(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			view, err := chains.GetChain(ctx, args[0])
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, view)
			}
			printChainSummary(cmd, view.Chain)
			fmt.Fprintln(cmd.OutOrStdout())
			return PrintResult(cmd, chainTable{view})
		},
	}
}

func newChainLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links <revision-id>",
		Short: "List the comment links into a revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, chains, err := chainService(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			links, err := chains.ListLinks(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, linkTable(links))
		},
	}
}

func newChainArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <chain-id>",
		Short: "Close a chain to further revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, chains, err := chainService(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			if err := chains.ArchiveChain(ctx, args[0]); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("chain %s archived", args[0]))
			return nil
		},
	}
}

//Personal.AI order the ending
