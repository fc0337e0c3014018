package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"doc_builder_app_go/config"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services/cache"
	"doc_builder_app_go/services/pagination"
	"doc_builder_app_go/templates/documents"

	"go.uber.org/zap"
)

// Preview modes
const (
	ModeInteractive = "interactive"
	ModePrint       = "print"
)

// PreviewOptions configures measurement and rendering geometry
type PreviewOptions struct {
	Layout   pagination.Layout
	WidthPx  float64
	Debounce time.Duration
	Timeout  time.Duration
	CacheTTL time.Duration
	// Observer receives measurement events. Nil disables it.
	Observer pagination.Observer
}

// PreviewOptionsFromConfig maps the loaded configuration onto preview options
func PreviewOptionsFromConfig(cfg *config.Config) PreviewOptions {
	return PreviewOptions{
		Layout:   pagination.Layout{PageHeight: cfg.PageHeightPx, PagePadding: cfg.PagePaddingPx},
		WidthPx:  cfg.PageWidthPx,
		Debounce: cfg.MeasureDebounce,
		Timeout:  cfg.MeasureTimeout,
		CacheTTL: cfg.PaginationCacheTTL,
	}
}

type controllerEntry struct {
	controller *pagination.Controller
	lastUsed   time.Time
}

// PreviewService renders previews and keeps one pagination controller per
// document. Outcomes are shared across documents through a content-keyed cache.
type PreviewService struct {
	measurer pagination.Measurer
	opts     PreviewOptions
	cache    *cache.TTLCache[string, pagination.Outcome]
	log      *zap.Logger

	mu          sync.Mutex
	controllers map[string]*controllerEntry
}

// NewPreviewService creates a preview service backed by measurer
func NewPreviewService(measurer pagination.Measurer, opts PreviewOptions, log *zap.Logger) *PreviewService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Layout == (pagination.Layout{}) {
		opts.Layout = pagination.DefaultLayout()
	}
	if opts.WidthPx <= 0 {
		opts.WidthPx = 794
	}
	return &PreviewService{
		measurer:    measurer,
		opts:        opts,
		cache:       cache.NewTTLCache[string, pagination.Outcome](),
		log:         log,
		controllers: make(map[string]*controllerEntry),
	}
}

// Sheet returns the page geometry templates render against
func (s *PreviewService) Sheet() documents.Sheet {
	return documents.Sheet{
		WidthPx:   s.opts.WidthPx,
		HeightPx:  s.opts.Layout.PageHeight,
		PaddingPx: s.opts.Layout.PagePadding,
	}
}

func (s *PreviewService) controllerOptions() pagination.Options {
	return pagination.Options{
		Layout:   s.opts.Layout,
		Debounce: s.opts.Debounce,
		Timeout:  s.opts.Timeout,
		Cache:    s.cache,
		CacheTTL: s.opts.CacheTTL,
		Observer: s.opts.Observer,
	}
}

func (s *PreviewService) controller(documentID string) *pagination.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.controllers[documentID]
	if !ok {
		entry = &controllerEntry{
			controller: pagination.NewController(s.measurer, s.controllerOptions(), s.log.With(zap.String("document_id", documentID))),
		}
		s.controllers[documentID] = entry
	}
	entry.lastUsed = time.Now()
	return entry.controller
}

// Snapshot captures doc's current content version for measurement
func (s *PreviewService) Snapshot(doc *models.Document) pagination.Snapshot {
	// Copy so later edits to doc cannot change what gets measured
	frozen := *doc
	frozen.Items = append([]models.LineItem(nil), doc.Items...)
	return pagination.Snapshot{
		Key:       ContentKey(&frozen, s.opts.WidthPx, s.opts.Layout),
		Width:     s.opts.WidthPx,
		ItemCount: len(frozen.Items),
		Markup: func(ctx context.Context) (string, error) {
			return s.MeasurementMarkup(ctx, &frozen)
		},
	}
}

// MeasurementMarkup renders every line item on a single unpaginated page
func (s *PreviewService) MeasurementMarkup(ctx context.Context, doc *models.Document) (string, error) {
	view := documents.NewDocumentView(doc)
	var b strings.Builder
	err := documents.Document(view, doc.TemplateID, [][]documents.ItemView{view.Items}, s.Sheet(), false).Render(ctx, &b)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Touch marks doc stale after an edit and arms a debounced measurement
func (s *PreviewService) Touch(doc *models.Document) {
	s.controller(doc.ID).Schedule(s.Snapshot(doc))
}

// State reports the pagination phase of a document
func (s *PreviewService) State(documentID string) pagination.State {
	s.mu.Lock()
	entry, ok := s.controllers[documentID]
	s.mu.Unlock()
	if !ok {
		return pagination.StateStale
	}
	return entry.controller.State()
}

// Current returns the resolved outcome of doc's current content, if any.
// It never starts a measurement.
func (s *PreviewService) Current(doc *models.Document) (pagination.Outcome, bool) {
	s.mu.Lock()
	entry, ok := s.controllers[doc.ID]
	s.mu.Unlock()
	if !ok {
		return pagination.Outcome{}, false
	}
	out, ok := entry.controller.Current()
	if !ok || out.Key != ContentKey(doc, s.opts.WidthPx, s.opts.Layout) {
		return pagination.Outcome{}, false
	}
	return out, true
}

// Paginate resolves the print pagination of doc, measuring if needed
func (s *PreviewService) Paginate(ctx context.Context, doc *models.Document) (pagination.Outcome, error) {
	snap := s.Snapshot(doc)
	out, err := s.controller(doc.ID).Resolve(ctx, snap)
	if errors.Is(err, pagination.ErrSuperseded) {
		// A newer edit replaced this version on the shared controller. This
		// caller still needs the version it asked for.
		c := pagination.NewController(s.measurer, s.controllerOptions(), s.log)
		defer c.Close()
		return c.Resolve(ctx, snap)
	}
	return out, err
}

// RenderPreview writes the HTML preview of doc. Interactive previews show all
// items on one page and warm up print pagination in the background. Print
// previews render one sheet per resolved page.
func (s *PreviewService) RenderPreview(ctx context.Context, w io.Writer, doc *models.Document, mode string) (pagination.Outcome, error) {
	view := documents.NewDocumentView(doc)

	if mode != ModePrint {
		s.Touch(doc)
		out := pagination.Outcome{State: s.State(doc.ID), Pages: [][]int{allIndices(len(view.Items))}}
		err := documents.Document(view, doc.TemplateID, [][]documents.ItemView{view.Items}, s.Sheet(), false).Render(ctx, w)
		return out, err
	}

	out, err := s.Paginate(ctx, doc)
	if err != nil {
		return pagination.Outcome{}, err
	}
	pages := pagination.Split(view.Items, out.Pages)
	paginated := out.State == pagination.StatePaginated
	return out, documents.Document(view, doc.TemplateID, pages, s.Sheet(), paginated).Render(ctx, w)
}

// PrintHTML renders the paginated print document as a string
func (s *PreviewService) PrintHTML(ctx context.Context, doc *models.Document) (string, pagination.Outcome, error) {
	var b strings.Builder
	out, err := s.RenderPreview(ctx, &b, doc, ModePrint)
	if err != nil {
		return "", pagination.Outcome{}, err
	}
	return b.String(), out, nil
}

// Controllers returns the number of live controllers
func (s *PreviewService) Controllers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}

// Forget drops the controller of a deleted document
func (s *PreviewService) Forget(documentID string) {
	s.mu.Lock()
	entry, ok := s.controllers[documentID]
	delete(s.controllers, documentID)
	s.mu.Unlock()
	if ok {
		entry.controller.Close()
	}
}

// Prune closes controllers idle for longer than maxIdle and purges expired
// cache entries. It returns the number of controllers closed.
func (s *PreviewService) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var idle []*pagination.Controller

	s.mu.Lock()
	for id, entry := range s.controllers {
		if entry.lastUsed.Before(cutoff) && entry.controller.State() != pagination.StateMeasuring {
			idle = append(idle, entry.controller)
			delete(s.controllers, id)
		}
	}
	s.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	purged := s.cache.PurgeExpired()
	if len(idle) > 0 || purged > 0 {
		s.log.Debug("pruned pagination state", zap.Int("controllers", len(idle)), zap.Int("cache_entries", purged))
	}
	return len(idle)
}

// Close stops every controller
func (s *PreviewService) Close() {
	s.mu.Lock()
	entries := s.controllers
	s.controllers = make(map[string]*controllerEntry)
	s.mu.Unlock()
	for _, entry := range entries {
		entry.controller.Close()
	}
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
