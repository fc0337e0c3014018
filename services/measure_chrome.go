package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"doc_builder_app_go/services/pagination"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// measureViewportHeight is tall enough that the hidden root never scrolls.
const measureViewportHeight = 1200

var errMeasurerClosed = errors.New("chrome measurer is closed")

// measureScript clones the preview root into a hidden sibling of the same
// width, waits for fonts and one layout tick, and reads marker heights.
// The hidden root is always removed before the promise settles.
var measureScript = strings.NewReplacer(
	"{{ROOT}}", pagination.AttrPreviewRoot,
	"{{HEADER}}", pagination.AttrPageHeaderContent,
	"{{CLIENT}}", pagination.AttrClientDetails,
	"{{CATEGORY}}", pagination.AttrCategoryPreview,
	"{{TABLE_HEADER}}", pagination.AttrTableHeader,
	"{{FOOTER}}", pagination.AttrFooter,
	"{{ROW}}", pagination.AttrTableRow,
).Replace(`(async (width) => {
  document.querySelectorAll('[data-measure-root]').forEach((n) => n.remove());
  const source = document.querySelector('[{{ROOT}}]');
  if (!source) {
    return { rows: [] };
  }
  const root = document.createElement('div');
  root.setAttribute('data-measure-root', '');
  root.setAttribute('aria-hidden', 'true');
  root.style.cssText = 'position:absolute;left:-100000px;top:0;visibility:hidden;pointer-events:none;width:' + width + 'px';
  root.appendChild(source.cloneNode(true));
  document.body.appendChild(root);
  try {
    if (document.fonts && document.fonts.ready) {
      await document.fonts.ready;
    }
    await new Promise((resolve) => setTimeout(resolve, 0));
    const height = (attr) => {
      const el = root.querySelector('[' + attr + ']');
      return el ? el.getBoundingClientRect().height : null;
    };
    return {
      pageHeaderContent: height('{{HEADER}}'),
      clientDetails: height('{{CLIENT}}'),
      categoryPreview: height('{{CATEGORY}}'),
      tableHeader: height('{{TABLE_HEADER}}'),
      footer: height('{{FOOTER}}'),
      rows: Array.from(root.querySelectorAll('[{{ROW}}]')).map((el) => el.getBoundingClientRect().height),
    };
  } finally {
    root.remove();
  }
})`)

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// ChromeMeasurer measures markup in a shared headless browser, one tab per pass
type ChromeMeasurer struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	sem           chan struct{}
	log           *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewChromeMeasurer starts the browser process. concurrency bounds open tabs.
func NewChromeMeasurer(chromePath string, concurrency int, log *zap.Logger) (*ChromeMeasurer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), chromeAllocatorOptions(chromePath)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Running with no actions launches the browser
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Info("chrome measurer started", zap.Int("concurrency", concurrency))
	return &ChromeMeasurer{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		sem:           make(chan struct{}, concurrency),
		log:           log,
	}, nil
}

// Measure loads req.HTML into a fresh tab at the container width and reads
// the marker heights from a hidden clone of the preview root.
func (m *ChromeMeasurer) Measure(ctx context.Context, req pagination.MeasureRequest) (pagination.MarkerReport, error) {
	ctx, span := otel.Tracer("doc_builder_app_go/services").Start(ctx, "chrome.measure")
	defer span.End()
	span.SetAttributes(attribute.Float64("width", req.Width), attribute.Int("items", req.ItemCount))

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return pagination.MarkerReport{}, errMeasurerClosed
	}

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return pagination.MarkerReport{}, ctx.Err()
	}

	tabCtx, cancel := chromedp.NewContext(m.browserCtx)
	defer cancel()
	// Tie the tab to the caller's cancellation
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	width := req.Width
	if width <= 0 {
		width = 794
	}

	var report pagination.MarkerReport
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(width), measureViewportHeight),
		chromedp.Navigate("about:blank"),
		setDocumentContent(req.HTML),
		chromedp.Evaluate(measureScript+"("+strconv.FormatFloat(width, 'f', -1, 64)+")", &report, awaitPromise),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "measurement failed")
		return pagination.MarkerReport{}, fmt.Errorf("failed to measure markup: %w", err)
	}

	span.SetAttributes(attribute.Int("rows", len(report.Rows)))
	return report, nil
}

// Close shuts down the browser. Later measurements fail.
func (m *ChromeMeasurer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.browserCancel()
	m.allocCancel()
	m.log.Info("chrome measurer stopped")
}
