package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/installment-calc/internal/session"
	"github.com/iwvelando/installment-calc/internal/store"
	"github.com/iwvelando/installment-calc/pkg/constants"
	"github.com/iwvelando/installment-calc/pkg/format"
	"github.com/iwvelando/installment-calc/pkg/loans"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

func newTestHandler(t *testing.T, opts Options) (http.Handler, *session.Session, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	sess, err := session.Open(context.Background(), zap.NewNop(), s, session.Options{
		Key:      "homeCreditCalc",
		Defaults: loans.DefaultInputs(),
		Presets:  loans.DefaultPresets(),
	})
	if err != nil {
		t.Fatalf("session.Open() error = %v", err)
	}
	t.Cleanup(sess.Close)

	if opts.Formatter == nil {
		opts.Formatter = format.NewFormatter(language.English, "")
	}
	return NewHandler(zap.NewNop(), sess, opts), sess, s
}

func perform(t *testing.T, h http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		switch p := payload.(type) {
		case string:
			body.WriteString(p)
		default:
			if err := json.NewEncoder(&body).Encode(p); err != nil {
				t.Fatalf("failed to encode payload: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp stateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandleStateGet(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	resp := decodeState(t, perform(t, h, http.MethodGet, "/api/state", nil))

	if resp.Inputs != loans.DefaultInputs() {
		t.Errorf("expected default inputs, got %+v", resp.Inputs)
	}
	if resp.Empty || resp.Summary == nil {
		t.Fatal("expected a summary for the defaults")
	}
	if resp.Summary.PeriodicPayment != 2300000 {
		t.Errorf("expected payment 2,300,000, got %v", resp.Summary.PeriodicPayment)
	}
	if resp.Summary.Display.PeriodicPayment != "2,300,000 ₫" {
		t.Errorf("unexpected display payment %q", resp.Summary.Display.PeriodicPayment)
	}
	if resp.TotalPeriods != 6 || len(resp.Preview) != 6 {
		t.Errorf("expected 6 periods, got %d with %d preview rows", resp.TotalPeriods, len(resp.Preview))
	}
	if len(resp.Notes) != 2 {
		t.Errorf("expected down payment note and method hint, got %v", resp.Notes)
	}
}

func TestHandleStatePatch(t *testing.T) {
	h, sess, s := newTestHandler(t, Options{})

	resp := decodeState(t, perform(t, h, http.MethodPost, "/api/state", map[string]interface{}{
		"price":  12000000,
		"months": 24,
		"method": "reducing",
	}))

	if resp.Inputs.Price != 12000000 || resp.Inputs.Months != 24 || resp.Inputs.Method != loans.MethodReducing {
		t.Errorf("unexpected inputs %+v", resp.Inputs)
	}
	if resp.TotalPeriods != 24 {
		t.Errorf("expected 24 periods, got %d", resp.TotalPeriods)
	}
	if len(resp.Preview) != 12 {
		t.Errorf("expected 12 preview rows, got %d", len(resp.Preview))
	}

	sess.Flush()
	data, err := s.Get(context.Background(), "homeCreditCalc")
	if err != nil {
		t.Fatalf("expected the patch to be persisted: %v", err)
	}
	var persisted loans.Inputs
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("failed to decode persisted record: %v", err)
	}
	if persisted != resp.Inputs {
		t.Errorf("persisted %+v, expected %+v", persisted, resp.Inputs)
	}
}

func TestHandleStateClampsInput(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	resp := decodeState(t, perform(t, h, http.MethodPost, "/api/state", map[string]interface{}{
		"months":      500,
		"monthlyRate": -3,
		"method":      "balloon",
	}))

	if resp.Inputs.Months != 120 || resp.Inputs.MonthlyRate != 0 || resp.Inputs.Method != loans.MethodFlat {
		t.Errorf("expected clamped inputs, got %+v", resp.Inputs)
	}
}

func TestHandleStateHugeAmounts(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	resp := decodeState(t, perform(t, h, http.MethodPost, "/api/state", `{"price":1e308,"extraFees":1e308}`))

	if resp.Inputs.Price != constants.MaxMonetaryAmount || resp.Inputs.ExtraFees != constants.MaxMonetaryAmount {
		t.Errorf("expected capped amounts, got %+v", resp.Inputs)
	}
	if resp.Summary == nil {
		t.Fatal("expected a summary for capped amounts")
	}
	for _, v := range []float64{resp.Summary.Principal, resp.Summary.PeriodicPayment, resp.Summary.TotalPayment} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Errorf("expected finite summary values, got %+v", resp.Summary)
		}
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	h := &handler{logger: zap.NewNop()}
	rr := httptest.NewRecorder()

	h.writeJSON(rr, http.StatusOK, map[string]float64{"total": math.Inf(1)})

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] == "" {
		t.Error("expected an error message")
	}
}

func TestHandleStateEmptyCalculation(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	resp := decodeState(t, perform(t, h, http.MethodPost, "/api/state", map[string]interface{}{"price": 0}))

	if !resp.Empty || resp.Summary != nil {
		t.Errorf("expected an empty calculation, got %+v", resp)
	}
	if len(resp.Preview) != 0 || resp.TotalPeriods != 0 {
		t.Errorf("expected no schedule, got %d rows", len(resp.Preview))
	}
	if len(resp.Notes) != 1 || !strings.Contains(resp.Notes[0], "price") {
		t.Errorf("expected the price prompt, got %v", resp.Notes)
	}
}

func TestHandleStateErrors(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{MaxBodyBytes: 32})

	tests := []struct {
		name     string
		method   string
		payload  interface{}
		expected int
	}{
		{"Malformed JSON", http.MethodPost, "{not json", http.StatusBadRequest},
		{"Wrong type", http.MethodPost, `{"price":"lots"}`, http.StatusBadRequest},
		{"Too large", http.MethodPost, `{"price":` + strings.Repeat("1", 64) + `}`, http.StatusRequestEntityTooLarge},
		{"Method not allowed", http.MethodDelete, nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := perform(t, h, tt.method, "/api/state", tt.payload)
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d: %s", tt.expected, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandlePreset(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	resp := decodeState(t, perform(t, h, http.MethodPost, "/api/preset", presetRequest{Name: "thirty-down-12"}))
	if resp.Inputs.DownPaymentMode != loans.ModePercent || resp.Inputs.Months != 12 {
		t.Errorf("unexpected inputs after preset %+v", resp.Inputs)
	}
	if resp.Summary == nil || resp.Summary.DownPayment != 4500000 {
		t.Errorf("expected 30%% down payment, got %+v", resp.Summary)
	}

	rr := perform(t, h, http.MethodPost, "/api/preset", presetRequest{Name: "unknown"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandlePresets(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	rr := perform(t, h, http.MethodGet, "/api/presets", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var presets []presetResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &presets); err != nil {
		t.Fatalf("failed to decode presets: %v", err)
	}
	if len(presets) != len(loans.DefaultPresets()) {
		t.Fatalf("expected %d presets, got %d", len(loans.DefaultPresets()), len(presets))
	}
	if presets[0].Name == "" || presets[0].Label == "" {
		t.Errorf("expected named presets, got %+v", presets[0])
	}
}

func TestHandleExportText(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	rr := perform(t, h, http.MethodGet, "/api/export/text", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "Total interest: 1,800,000 ₫") {
		t.Errorf("unexpected summary:\n%s", rr.Body.String())
	}
}

func TestHandleExportCSV(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	rr := perform(t, h, http.MethodGet, "/api/export/csv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "installment-schedule.csv") {
		t.Errorf("expected attachment header, got %q", rr.Header().Get("Content-Disposition"))
	}

	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("expected header plus 6 rows, got %d", len(records))
	}
	if strings.Join(records[1], ",") != "1,2300000,2000000,300000,10000000" {
		t.Errorf("unexpected first row %v", records[1])
	}
}

func TestHandleExportWithoutCalculation(t *testing.T) {
	h, sess, _ := newTestHandler(t, Options{})
	sess.SetPrice(0)

	for _, path := range []string{"/api/export/text", "/api/export/csv"} {
		t.Run(path, func(t *testing.T) {
			rr := perform(t, h, http.MethodGet, path, nil)
			if rr.Code != http.StatusConflict {
				t.Errorf("expected status 409, got %d", rr.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] == "" {
				t.Error("expected an advisory message")
			}
		})
	}
}

func TestHandleExportYAML(t *testing.T) {
	h, sess, _ := newTestHandler(t, Options{})
	sess.SetMonths(9)

	rr := perform(t, h, http.MethodGet, "/api/export/yaml", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var payload struct {
		Defaults loans.PartialInputs `yaml:"defaults"`
	}
	if err := yaml.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse YAML: %v", err)
	}
	if got := loans.Normalize(payload.Defaults, loans.DefaultInputs()); got != sess.Inputs() {
		t.Errorf("expected YAML to round trip to %+v, got %+v", sess.Inputs(), got)
	}
}

func TestHandleVersion(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		expected string
	}{
		{"Explicit", "v1.2.3", "v1.2.3"},
		{"Blank", "  ", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHandler(t, Options{Version: tt.version})
			rr := perform(t, h, http.MethodGet, "/api/version", nil)

			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["version"] != tt.expected {
				t.Errorf("expected version %q, got %q", tt.expected, resp["version"])
			}
		})
	}
}
