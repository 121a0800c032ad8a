/*
handlers.go - HTTP API handlers for the benefit assessment engine

PURPOSE:
  Exposes the assessment engine via REST API. Handles HTTP request and
  response, JSON serialization, and delegates to the domain packages.
  Every request recomputes from its own inputs; nothing about a case is
  kept between requests.

ENDPOINTS:
  Assessment:
    POST   /api/assessments            Full recompute from an assessment request

  Parsing:
    POST   /api/cases/parse            Case text -> case, AAP dates, gaps
    POST   /api/salary/parse           Pasted grid -> salary timeline
    POST   /api/salary/xlsx            Uploaded workbook -> salary timeline
    POST   /api/salary/extract         Uploaded screenshot -> salary timeline

  G table:
    GET    /api/g-table                Table in force
    PUT    /api/g-table/{date}         Upsert a row (date as DD.MM.YYYY)
    DELETE /api/g-table/{date}         Delete a row

  Helpers:
    GET    /api/dates/format?input=    Keystroke date formatting

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: G-table persistence
  - Factory: JSON request to assessment.Input conversion
  - Extractor: optional image extraction (nil disables the endpoint)
  - The G table in force, swapped atomically after every table edit

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: G-table row not found
  - 413: Upload too large
  - 415: Unsupported image type
  - 429: Extraction provider rate limit
  - 503: Extraction not configured
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Built-in sample cases
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/warp/benefit-engine/assessment"
	"github.com/warp/benefit-engine/casetext"
	"github.com/warp/benefit-engine/extraction"
	"github.com/warp/benefit-engine/factory"
	"github.com/warp/benefit-engine/generic"
	"github.com/warp/benefit-engine/karens"
	"github.com/warp/benefit-engine/salary"
)

// Where the G table in force came from.
const (
	TableSourceStore   = "store"
	TableSourceDefault = "default"
)

const defaultMaxUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     generic.IndexStore
	Factory   *factory.AssessmentFactory
	Extractor extraction.Extractor
	Logger    *logrus.Logger

	MaxUploadBytes int64

	mu          sync.RWMutex
	table       *karens.GTable
	tableSource string
}

// NewHandler creates a handler using the built-in G table until LoadTable
// is called.
func NewHandler(store generic.IndexStore, logger *logrus.Logger) *Handler {
	return &Handler{
		Store:          store,
		Factory:        factory.NewAssessmentFactory(),
		Logger:         logger,
		MaxUploadBytes: defaultMaxUploadBytes,
		table:          karens.DefaultTable(),
		tableSource:    TableSourceDefault,
	}
}

// LoadTable rebuilds the G table from the store. An empty store means the
// built-in table; falling back from a stored table is logged as a warning.
func (h *Handler) LoadTable(ctx context.Context) error {
	entries, err := h.Store.ListIndex(ctx)
	if err != nil {
		return fmt.Errorf("list G table: %w", err)
	}

	table, source := karens.DefaultTable(), TableSourceDefault
	if len(entries) > 0 {
		if table, err = karens.NewTable(entries); err != nil {
			return err
		}
		source = TableSourceStore
	}

	h.mu.Lock()
	previous := h.tableSource
	h.table, h.tableSource = table, source
	h.mu.Unlock()

	if previous == TableSourceStore && source == TableSourceDefault {
		h.Logger.WithField("entries", len(table.Entries())).
			Warn("G table store empty, using built-in table")
	}
	return nil
}

// Table returns the G table in force.
func (h *Handler) Table() (*karens.GTable, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.table, h.tableSource
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness and the G table in use.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	_, source := h.Table()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"g_table":    source,
		"extraction": h.Extractor != nil,
	})
}

// =============================================================================
// ASSESSMENT
// =============================================================================

// Assess recomputes every determination for the posted request.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	in, err := h.Factory.ParseAssessment(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid assessment request", err)
		return
	}

	h.writeAssessment(w, r, in)
}

func (h *Handler) writeAssessment(w http.ResponseWriter, r *http.Request, in assessment.Input) {
	table, _ := h.Table()
	result := assessment.Compute(in, table)

	h.Logger.WithFields(logrus.Fields{
		"fingerprint": result.Fingerprint,
		"messages":    len(result.Messages),
		"critical":    countLevel(result.Messages, generic.LevelCritical),
	}).Info("assessment computed")

	writeJSON(w, http.StatusOK, result)
}

func countLevel(msgs []generic.Message, level generic.Level) int {
	n := 0
	for _, m := range msgs {
		if m.Level == level {
			n++
		}
	}
	return n
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCase parses a pasted case dump.
func (h *Handler) ParseCase(w http.ResponseWriter, r *http.Request) {
	var req ParseCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c := casetext.Parse(req.Text)
	writeJSON(w, http.StatusOK, CaseResponse{
		Case:     c,
		AAPStart: c.AAPStart(),
		AAPEnd:   c.AAPEnd(),
		Gaps:     c.Gaps(),
	})
}

// ParseSalary parses a pasted salary grid.
func (h *Handler) ParseSalary(w http.ResponseWriter, r *http.Request) {
	var req ParseSalaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	opts, err := salaryOptions(req.SickDate, req.Basis)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid salary options", err)
		return
	}

	if len(req.Rows) > 0 {
		writeJSON(w, http.StatusOK, salary.ParseGrid(req.Rows, opts))
		return
	}
	writeJSON(w, http.StatusOK, salary.ParseText(req.Grid, opts))
}

// UploadSalaryWorkbook parses the first sheet of an uploaded .xlsx file.
func (h *Handler) UploadSalaryWorkbook(w http.ResponseWriter, r *http.Request) {
	file, err := h.formFile(w, r, "file")
	if err != nil {
		writeUploadError(w, err)
		return
	}
	defer file.Close()

	opts, err := salaryOptions(r.FormValue("sick_date"), r.FormValue("basis"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid salary options", err)
		return
	}

	grid, err := salary.ReadWorkbook(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read workbook", err)
		return
	}
	writeJSON(w, http.StatusOK, salary.ParseGrid(grid, opts))
}

// ExtractSalary reads salary rows out of an uploaded screenshot.
func (h *Handler) ExtractSalary(w http.ResponseWriter, r *http.Request) {
	if h.Extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "Image extraction is not configured", nil)
		return
	}

	file, err := h.formFile(w, r, "image")
	if err != nil {
		writeUploadError(w, err)
		return
	}
	defer file.Close()

	opts, err := salaryOptions(r.FormValue("sick_date"), r.FormValue("basis"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid salary options", err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read image", err)
		return
	}
	img := extraction.Image{Bytes: data, ContentType: http.DetectContentType(data)}

	rows, err := h.Extractor.Extract(r.Context(), img)
	if err != nil {
		var rle *extraction.RateLimitError
		switch {
		case errors.As(err, &rle):
			w.Header().Set("Retry-After", strconv.Itoa(int(rle.RetryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Extraction provider is rate limited", err)
		case errors.Is(err, extraction.ErrUnsupportedContentType):
			writeError(w, http.StatusUnsupportedMediaType, "Unsupported image type", err)
		default:
			h.Logger.WithError(err).Error("image extraction failed")
			writeError(w, http.StatusBadGateway, "Image extraction failed", err)
		}
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"content_type": img.ContentType,
		"rows":         len(rows),
	}).Info("salary rows extracted")

	writeJSON(w, http.StatusOK, salary.FromExtracted(rows, opts))
}

var errUploadTooLarge = errors.New("upload too large")

func (h *Handler) formFile(w http.ResponseWriter, r *http.Request, field string) (io.ReadCloser, error) {
	if r.ContentLength > h.MaxUploadBytes {
		return nil, errUploadTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errUploadTooLarge
		}
		return nil, err
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing form field %q: %w", field, err)
	}
	return file, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUploadTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", err)
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid upload", err)
}

func salaryOptions(sickDate, basis string) (salary.Options, error) {
	var opts salary.Options
	if s := strings.TrimSpace(sickDate); s != "" {
		d, ok := generic.ParseDate(generic.FormatInput(s))
		if !ok {
			return opts, fmt.Errorf("%w: sick_date %q", generic.ErrInvalidDate, sickDate)
		}
		opts.SickDate = &d
	}
	b, ok := salary.ParseBasis(strings.TrimSpace(basis))
	if !ok {
		return opts, fmt.Errorf("%w: basis %q", generic.ErrInvalidRequest, basis)
	}
	opts.Override = b
	return opts, nil
}

// =============================================================================
// G TABLE HANDLERS
// =============================================================================

// GetGTable returns the table in force.
func (h *Handler) GetGTable(w http.ResponseWriter, r *http.Request) {
	table, source := h.Table()
	writeJSON(w, http.StatusOK, GTableDTO{Source: source, Entries: table.Entries()})
}

// PutGTableEntry upserts the row for the date in the path.
func (h *Handler) PutGTableEntry(w http.ResponseWriter, r *http.Request) {
	date, ok := generic.ParseDate(generic.FormatInput(chi.URLParam(r, "date")))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid effective date", generic.ErrInvalidDate)
		return
	}

	var req GTableEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Amount must be positive", generic.ErrMalformedIndexTable)
		return
	}

	ctx := r.Context()
	if err := h.seedIfDefault(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed G table", err)
		return
	}
	if err := h.Store.SaveIndexEntry(ctx, generic.IndexEntry{EffectiveFrom: date, Amount: req.Amount}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save G table row", err)
		return
	}
	if err := h.LoadTable(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload G table", err)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"effective_from": date.String(),
		"amount":         req.Amount.String(),
	}).Info("G table row saved")

	h.GetGTable(w, r)
}

// DeleteGTableEntry removes the row for the date in the path. The last
// stored row is kept so the table never falls back to the built-in one
// through the API.
func (h *Handler) DeleteGTableEntry(w http.ResponseWriter, r *http.Request) {
	date, ok := generic.ParseDate(generic.FormatInput(chi.URLParam(r, "date")))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid effective date", generic.ErrInvalidDate)
		return
	}

	ctx := r.Context()
	if err := h.seedIfDefault(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed G table", err)
		return
	}
	existing, err := h.Store.ListIndex(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list G table", err)
		return
	}
	if len(existing) == 1 && existing[0].EffectiveFrom.Equal(date) {
		writeError(w, http.StatusConflict, "The last G table row cannot be deleted", generic.ErrLastIndexEntry)
		return
	}
	if err := h.Store.DeleteIndexEntry(ctx, date); err != nil {
		if generic.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "G table row not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete G table row", err)
		return
	}
	if err := h.LoadTable(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload G table", err)
		return
	}

	h.Logger.WithField("effective_from", date.String()).Info("G table row deleted")
	w.WriteHeader(http.StatusNoContent)
}

// seedIfDefault copies the built-in table into an empty store so that an
// edit changes one row instead of replacing the whole table.
func (h *Handler) seedIfDefault(ctx context.Context) error {
	if _, source := h.Table(); source != TableSourceDefault {
		return nil
	}
	existing, err := h.Store.ListIndex(ctx)
	if err != nil || len(existing) > 0 {
		return err
	}
	for _, e := range karens.DefaultEntries() {
		if err := h.Store.SaveIndexEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// FormatDate applies keystroke formatting to ?input=.
func (h *Handler) FormatDate(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	formatted := generic.FormatInput(input)
	_, valid := generic.ParseDate(formatted)
	writeJSON(w, http.StatusOK, FormatDateResponse{Input: input, Formatted: formatted, Valid: valid})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
