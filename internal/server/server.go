package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iwvelando/installment-calc/internal/session"
	"github.com/iwvelando/installment-calc/pkg/constants"
	"github.com/iwvelando/installment-calc/pkg/format"
	"github.com/iwvelando/installment-calc/pkg/loans"
	"github.com/iwvelando/installment-calc/pkg/output"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Options tunes the HTTP handler.
type Options struct {
	MaxBodyBytes int64
	PreviewRows  int
	Formatter    *format.Formatter
	Version      string
}

type handler struct {
	logger       *zap.Logger
	sess         *session.Session
	formatter    *format.Formatter
	maxBodyBytes int64
	previewRows  int
	version      string
}

// NewHandler constructs the HTTP handler that serves the calculator API for
// a single session.
func NewHandler(logger *zap.Logger, sess *session.Session, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = constants.DefaultMaxBodyBytes
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = constants.SchedulePreviewRows
	}
	if opts.Formatter == nil {
		opts.Formatter = format.Default()
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:       logger,
		sess:         sess,
		formatter:    opts.Formatter,
		maxBodyBytes: opts.MaxBodyBytes,
		previewRows:  opts.PreviewRows,
		version:      trimmedVersion,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/preset", h.handlePreset)
	mux.HandleFunc("/api/presets", h.handlePresets)
	mux.HandleFunc("/api/export/text", h.handleExportText)
	mux.HandleFunc("/api/export/csv", h.handleExportCSV)
	mux.HandleFunc("/api/export/yaml", h.handleExportYAML)
	mux.HandleFunc("/api/version", h.handleVersion)
	return mux
}

type stateResponse struct {
	Inputs       loans.Inputs        `json:"inputs"`
	Empty        bool                `json:"empty"`
	Summary      *summary            `json:"summary,omitempty"`
	Preview      []loans.ScheduleRow `json:"preview"`
	TotalPeriods int                 `json:"totalPeriods"`
	Notes        []string            `json:"notes,omitempty"`
}

type summary struct {
	DownPayment     float64        `json:"downPayment"`
	Principal       float64        `json:"principal"`
	PeriodicPayment float64        `json:"periodicPayment"`
	TotalInterest   float64        `json:"totalInterest"`
	TotalPayment    float64        `json:"totalPayment"`
	Display         summaryDisplay `json:"display"`
}

type summaryDisplay struct {
	Price           string `json:"price"`
	DownPayment     string `json:"downPayment"`
	Principal       string `json:"principal"`
	PeriodicPayment string `json:"periodicPayment"`
	TotalInterest   string `json:"totalInterest"`
	TotalPayment    string `json:"totalPayment"`
	Method          string `json:"method"`
}

type presetRequest struct {
	Name string `json:"name"`
}

type presetResponse struct {
	Name   string              `json:"name"`
	Label  string              `json:"label"`
	Inputs loans.PartialInputs `json:"inputs"`
}

func (h *handler) handleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, h.buildState(h.sess.Calculation()))
	case http.MethodPost:
		var patch loans.PartialInputs
		if !h.decodeBody(w, r, &patch, "server.handleState") {
			return
		}
		calc := h.sess.Edit(patch)
		h.writeJSON(w, http.StatusOK, h.buildState(calc))
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *handler) handlePreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req presetRequest
	if !h.decodeBody(w, r, &req, "server.handlePreset") {
		return
	}

	calc, err := h.sess.ApplyPreset(req.Name)
	if errors.Is(err, session.ErrUnknownPreset) {
		h.respondError(w, http.StatusNotFound, err.Error(), "server.handlePreset")
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error(), "server.handlePreset")
		return
	}
	h.writeJSON(w, http.StatusOK, h.buildState(calc))
}

func (h *handler) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	presets := h.sess.Presets()
	resp := make([]presetResponse, 0, len(presets))
	for _, p := range presets {
		resp = append(resp, presetResponse{Name: p.Name, Label: p.Label, Inputs: p.Inputs})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleExportText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	text, err := h.sess.ExportText(h.formatter)
	if err != nil {
		h.respondExportError(w, err, "server.handleExportText")
		return
	}
	h.writeText(w, "text/plain; charset=utf-8", "", text)
}

func (h *handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	csv, err := h.sess.ExportCSV()
	if err != nil {
		h.respondExportError(w, err, "server.handleExportCSV")
		return
	}
	h.writeText(w, "text/csv; charset=utf-8", "installment-schedule.csv", csv)
}

// handleExportYAML renders the current inputs as a defaults section that can
// be pasted into config.yaml.
func (h *handler) handleExportYAML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	payload := struct {
		Defaults loans.Inputs `yaml:"defaults"`
	}{Defaults: h.sess.Inputs()}

	yamlBytes, err := yaml.Marshal(payload)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode configuration: %v", err), "server.handleExportYAML")
		return
	}
	h.writeText(w, "application/yaml", "", string(yamlBytes))
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) buildState(calc loans.Calculation) stateResponse {
	resp := stateResponse{
		Inputs:  calc.Inputs,
		Empty:   calc.Empty,
		Preview: calc.Preview(h.previewRows),
		Notes:   output.Notes(calc, h.formatter),
	}
	if resp.Preview == nil {
		resp.Preview = []loans.ScheduleRow{}
	}
	if calc.Empty {
		return resp
	}

	f := h.formatter
	resp.TotalPeriods = len(calc.Result.Schedule)
	resp.Summary = &summary{
		DownPayment:     calc.DownPayment,
		Principal:       calc.Principal,
		PeriodicPayment: calc.Result.PeriodicPayment,
		TotalInterest:   calc.Result.TotalInterest,
		TotalPayment:    calc.Result.TotalPayment,
		Display: summaryDisplay{
			Price:           f.Currency(calc.Inputs.Price),
			DownPayment:     f.Currency(calc.DownPayment),
			Principal:       f.Currency(calc.Principal),
			PeriodicPayment: f.Currency(calc.Result.PeriodicPayment),
			TotalInterest:   f.Currency(calc.Result.TotalInterest),
			TotalPayment:    f.Currency(calc.Result.TotalPayment),
			Method:          calc.Inputs.Method.Label(),
		},
	}
	return resp
}

func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxBodyBytes), op)
			return false
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

// respondExportError answers an export made before any calculation exists
// with an advisory conflict rather than a server error.
func (h *handler) respondExportError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, output.ErrNoCalculation) {
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	h.respondError(w, http.StatusInternalServerError, err.Error(), op)
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes the payload before committing the status, so an encoding
// failure still reaches the client as a 500.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
		buf.Reset()
		buf.WriteString(`{"error":"failed to encode response"}` + "\n")
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}

func (h *handler) writeText(w http.ResponseWriter, contentType, filename, body string) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Error("failed to write response", zap.String("op", "server.writeText"), zap.Error(err))
	}
}
