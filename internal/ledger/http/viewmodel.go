package ledgerhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-data/meridian/internal/ledger"
)

// decode reads and validates a JSON request body. Returns false after
// writing the error response when the body is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_ARGUMENT", "malformed JSON body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_ARGUMENT", err.Error()))
		return false
	}
	return true
}

// parseAmount converts a wire decimal string ("1.5") into smallest
// units at the configured number of decimals.
func (h *Handler) parseAmount(s string) (ledger.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ledger.Amount{}, &ledger.Error{Kind: ledger.KindInvalidAmount, Message: "amount must be a decimal number"}
	}
	units := d.Shift(h.decimals)
	if !units.IsInteger() {
		return ledger.Amount{}, &ledger.Error{Kind: ledger.KindInvalidAmount, Message: "amount has more fractional digits than the token supports"}
	}
	return ledger.ParseAmount(units.String())
}

// formatAmount renders smallest units back into a wire decimal string.
func (h *Handler) formatAmount(a ledger.Amount) string {
	d, err := decimal.NewFromString(a.String())
	if err != nil {
		return a.String()
	}
	return d.Shift(-h.decimals).String()
}

func (h *Handler) datasetView(ds ledger.Dataset) map[string]any {
	return map[string]any{
		"cid":         ds.Cid,
		"owner":       ds.Owner,
		"name":        ds.Name,
		"description": ds.Description,
		"price":       h.formatAmount(ds.Price),
		"is_public":   ds.IsPublic,
		"is_removed":  ds.IsRemoved,
		"created_at":  ds.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) licenseView(lic ledger.License) map[string]any {
	return map[string]any{
		"license_id": lic.ID,
		"licensee":   lic.Licensee,
		"cid":        lic.Cid,
		"is_active":  lic.IsActive,
		"issued_at":  lic.IssuedAt.Format(time.RFC3339),
		"expires_at": lic.ExpiresAt.Format(time.RFC3339),
	}
}

// respond writes either the success body or the mapped ledger error.
func (h *Handler) respond(w http.ResponseWriter, err error, body map[string]any) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	if body == nil {
		body = map[string]any{}
	}
	body["ok"] = true
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := ledger.KindOf(err)
	if kind == "" {
		h.logger.Error("unclassified ledger error", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorBody("INTERNAL", "internal error"))
		return
	}
	writeJSON(w, statusForKind(kind), errorBody(string(kind), err.Error()))
}

// statusForKind maps ledger error kinds onto stable HTTP status codes.
func statusForKind(kind ledger.Kind) int {
	switch kind {
	case ledger.KindUnauthorized, ledger.KindNotOwner, ledger.KindNotAuthorized:
		return http.StatusForbidden
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindDuplicateContent, ledger.KindLicenseAlreadyActive:
		return http.StatusConflict
	case ledger.KindSystemPaused:
		return http.StatusServiceUnavailable
	case ledger.KindInsufficientBalance, ledger.KindInsufficientAllowance:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadRequest
	}
}

func errorBody(kind, message string) map[string]any {
	return map[string]any{
		"ok":    false,
		"error": map[string]string{"kind": kind, "message": message},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
