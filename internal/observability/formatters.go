package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/archive-enricher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintDocumentQuality outputs a human-readable summary of a document's
// quality metrics after validation.
func (p *Printer) PrintDocumentQuality(doc *types.EnrichedDocument) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Document:     %s\n", doc.DocumentID))
	sb.WriteString(fmt.Sprintf("Schema:       %s\n", doc.SchemaVersion))
	sb.WriteString(fmt.Sprintf("Completeness: %.3f\n", doc.Quality.Completeness))
	sb.WriteString(fmt.Sprintf("Review:       %s\n", doc.ReviewStatus))

	if len(doc.Quality.MissingFields) > 0 {
		sb.WriteString("\nMissing fields:\n")
		for i, path := range doc.Quality.MissingFields {
			if i >= maxItemsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.Quality.MissingFields)-maxItemsToShow))
				break
			}
			sb.WriteString(fmt.Sprintf("  - %s\n", path))
		}
	}

	if len(doc.Quality.LowConfidenceFields) > 0 {
		sb.WriteString("\nLow-confidence fields:\n")
		for i, path := range doc.Quality.LowConfidenceFields {
			if i >= maxItemsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.Quality.LowConfidenceFields)-maxItemsToShow))
				break
			}
			sb.WriteString(fmt.Sprintf("  - %s\n", path))
		}
	}

	p.printBox("Document Quality", sb.String())
}

// PrintJobSummary outputs a human-readable summary of an enrichment job.
func (p *Printer) PrintJobSummary(job *types.EnrichmentJob) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:       %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Batch:     %s\n", job.SourceBatchID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Documents: %d/%d processed\n", job.ProcessedCount, job.TotalDocuments))
	sb.WriteString(fmt.Sprintf("Review:    %d\n", job.ReviewCount))
	sb.WriteString(fmt.Sprintf("Errors:    %d\n", job.ErrorCount))
	sb.WriteString(fmt.Sprintf("Cost:      $%.4f\n", job.AggregateCostUSD))

	p.printBox("Enrichment Job", sb.String())
}

// PrintReviewTask outputs a human-readable summary of a review task.
func (p *Printer) PrintReviewTask(task *types.ReviewTask) {
	if task == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Task:     %s\n", task.ID))
	sb.WriteString(fmt.Sprintf("Document: %s\n", task.DocumentID))
	sb.WriteString(fmt.Sprintf("Reason:   %s\n", task.Reason))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", task.Status))

	if len(task.FlaggedFields) > 0 {
		sb.WriteString("\nFlagged fields:\n")
		for i, f := range task.FlaggedFields {
			if i >= maxItemsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(task.FlaggedFields)-maxItemsToShow))
				break
			}
			sb.WriteString(fmt.Sprintf("  - %s (%s)\n", f.Path, f.Issue))
		}
	}

	p.printBox("Review Task", sb.String())
}
