package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/infra/progress"
)

const (
	bannerTitle = "🐶 Leoric KB AI - Hugging Face Integration"

	// maxSummaryEntries is the number of extracted entries listed by printSummary
	maxSummaryEntries = 10
)

func printBanner(w io.Writer) {
	color.New(color.FgHiCyan, color.Bold).Fprintln(w, bannerTitle)
	fmt.Fprintln(w, strings.Repeat("=", 50))
}

func printSummary(w io.Writer, req *model.FetchRequest, result *model.ExtractionResult) {
	if result.Skipped {
		color.New(color.FgYellow).Fprintf(w, "⚠️  %s is not empty, skipped download and extraction\n", req.Destination)
		return
	}

	color.New(color.FgGreen).Fprintf(w, "✅ Downloaded %s from %s\n",
		progress.FormatBytes(result.Progress.BytesTransferred), req.SourceURL)
	color.New(color.FgGreen).Fprintf(w, "📂 Extracted %d entries into %s\n", len(result.Entries), result.Destination)

	for i, entry := range result.Entries {
		if i == maxSummaryEntries {
			fmt.Fprintf(w, "  - ... and %d more\n", len(result.Entries)-maxSummaryEntries)
			break
		}
		fmt.Fprintf(w, "  - %s\n", entry)
	}
}
