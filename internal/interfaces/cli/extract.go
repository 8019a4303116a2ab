package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/extraction"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/pdf"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ExtractResult is the output of `docrev extract`.
type ExtractResult struct {
	Report   *extraction.Report `json:"report"`
	Comments []*comment.Comment `json:"comments"`
	Saved    bool               `json:"saved"`
}

func (r *ExtractResult) TableHeaders() []string {
	return []string{"#", "Page", "Kind", "Clause", "Text"}
}

func (r *ExtractResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Comments))
	for _, c := range r.Comments {
		rows = append(rows, []string{
			strconv.Itoa(c.SerialNumber),
			strconv.Itoa(c.Page),
			string(c.Kind),
			c.ClauseReference,
			truncate(c.Text, 80),
		})
	}
	return rows
}

func newPipeline(cliCtx *CLIContext) *extraction.Pipeline {
	return extraction.NewPipeline(extraction.NewScanner(extraction.DefaultVocabulary()), cliCtx.Logger)
}

func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentUnreadable, "failed to read document").WithDetail(path)
	}
	return data, nil
}

// documentIDFor derives a document ID from a file name.
func documentIDFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newExtractCmd() *cobra.Command {
	var (
		documentID string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract review comments from a marked-up PDF",
		Long: "Extract the coloured annotations and red comment text of a PDF drawing as an\n" +
			"ordered comment list.  With --save the comments replace the stored set of the\n" +
			"document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			data, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if documentID == "" {
				documentID = documentIDFor(args[0])
			}

			result := &ExtractResult{}
			if save {
				backend, err := cliCtx.Backend(ctx)
				if err != nil {
					return err
				}
				res, err := backend.Ingestion().IngestBytes(ctx, documentID, data)
				if err != nil {
					return err
				}
				result.Report, result.Comments, result.Saved = res.Report, res.Comments, true
			} else {
				comments, report, err := newPipeline(cliCtx).ExtractBytes(ctx, documentID, pdf.NewOpener(), data)
				if err != nil {
					return err
				}
				result.Report, result.Comments = report, comments
			}

			if err := PrintResult(cmd, result); err != nil {
				return err
			}
			if cliCtx.OutputFormat != "json" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d comments from %d pages (%d failed, %d dropped)\n",
					result.Report.Comments, result.Report.Pages, result.Report.PagesFailed, result.Report.Dropped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&documentID, "document-id", "", "document ID (default: file name without .pdf)")
	cmd.Flags().BoolVar(&save, "save", false, "store the comments in the database")
	return cmd
}

//Personal.AI order the ending
