package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"doc_builder_app_go/config"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services"
	"doc_builder_app_go/services/pagination"

	"go.uber.org/zap"
)

// pageOutput lists one page of the partition
type pageOutput struct {
	Index   int      `json:"index"`
	Items   []int    `json:"items"`
	ItemIDs []string `json:"item_ids,omitempty"`
}

type output struct {
	State      pagination.State            `json:"state"`
	Key        string                      `json:"key"`
	TotalPages int                         `json:"total_pages"`
	Reason     string                      `json:"reason,omitempty"`
	Pages      []pageOutput                `json:"pages"`
	Heights    *pagination.MeasuredHeights `json:"heights,omitempty"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run reads a document JSON from the file argument (or stdin) and writes
// its print pagination as JSON
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("paginate", flag.ContinueOnError)
	engine := flags.String("engine", config.MeasureEngineEstimate, "measurement engine: estimate or chrome")
	chromePath := flags.String("chrome-path", os.Getenv("CHROME_PATH"), "Chrome executable for the chrome engine")
	width := flags.Float64("width", 794, "container width in CSS px")
	pageHeight := flags.Float64("page-height", 1123, "printable page height in CSS px")
	padding := flags.Float64("padding", 96, "vertical page padding in CSS px")
	timeout := flags.Duration("timeout", 30*time.Second, "measurement timeout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	in := stdin
	if flags.NArg() > 0 {
		f, err := os.Open(flags.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var doc models.Document
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return fmt.Errorf("invalid document JSON: %w", err)
	}
	if doc.ID == "" {
		doc.ID = "cli"
	}
	services.NormalizeDocument(&doc)

	var measurer pagination.Measurer
	switch *engine {
	case config.MeasureEngineEstimate:
		measurer = services.NewMarkupEstimator(services.DefaultEstimatorOptions())
	case config.MeasureEngineChrome:
		chrome, err := services.NewChromeMeasurer(*chromePath, 1, zap.NewNop())
		if err != nil {
			return err
		}
		defer chrome.Close()
		measurer = chrome
	default:
		return fmt.Errorf("unknown engine %q", *engine)
	}

	preview := services.NewPreviewService(measurer, services.PreviewOptions{
		Layout:   pagination.Layout{PageHeight: *pageHeight, PagePadding: *padding},
		WidthPx:  *width,
		Timeout:  *timeout,
		CacheTTL: time.Minute,
	}, zap.NewNop())
	defer preview.Close()

	out, err := preview.Paginate(ctx, &doc)
	if err != nil {
		return err
	}

	result := output{
		State:      out.State,
		Key:        out.Key,
		TotalPages: out.TotalPages(),
		Reason:     out.Reason,
		Pages:      make([]pageOutput, 0, len(out.Pages)),
		Heights:    out.Heights,
	}
	for i, indices := range out.Pages {
		page := pageOutput{Index: i, Items: indices}
		for _, idx := range indices {
			if id := doc.Items[idx].ID; id != "" {
				page.ItemIDs = append(page.ItemIDs, id)
			}
		}
		result.Pages = append(result.Pages, page)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
