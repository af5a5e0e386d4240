// Package ledgerhttp exposes the ledger's operations over a thin JSON
// surface. It holds no state of its own: every request resolves to one
// ledger operation plus response shaping.
package ledgerhttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-data/meridian/internal/ledger"
	"github.com/meridian-data/meridian/internal/observability"
	"github.com/meridian-data/meridian/internal/shared"
)

// Handler serves the marketplace ledger API.
type Handler struct {
	ledger   *ledger.Ledger
	metrics  *observability.Metrics
	validate *validator.Validate
	logger   *slog.Logger
	decimals int32
}

// NewHandler constructs the API handler. decimals configures how many
// fractional digits token amounts carry on the wire.
func NewHandler(l *ledger.Ledger, metrics *observability.Metrics, logger *slog.Logger, decimals int32) *Handler {
	return &Handler{
		ledger:   l,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
		decimals: decimals,
	}
}

// Routes mounts the API on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/roles", func(r chi.Router) {
		r.Post("/grant", h.grantRole)
		r.Post("/revoke", h.revokeRole)
		r.Get("/{role}/{account}", h.hasRole)
	})

	r.Route("/system", func(r chi.Router) {
		r.Post("/pause", h.pause)
		r.Post("/unpause", h.unpause)
		r.Get("/status", h.status)
	})

	r.Route("/tokens", func(r chi.Router) {
		r.Post("/mint", h.mint)
		r.Post("/burn", h.burn)
		r.Post("/transfer", h.transfer)
		r.Post("/transfer-from", h.transferFrom)
		r.Post("/approve", h.approve)
		r.Get("/balance/{account}", h.balance)
		r.Get("/allowance/{owner}/{spender}", h.allowance)
		r.Get("/total-supply", h.totalSupply)
	})

	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", h.registerDataset)
		r.Get("/", h.listDatasets)
		r.Get("/{cid}", h.datasetInfo)
		r.Patch("/{cid}/price", h.updatePrice)
		r.Patch("/{cid}/visibility", h.updateVisibility)
		r.Delete("/{cid}", h.removeDataset)
		r.Post("/{cid}/access", h.grantAccess)
		r.Get("/{cid}/access/{account}", h.hasAccess)
	})

	r.Route("/licenses", func(r chi.Router) {
		r.Post("/allowance", h.licenseAllowance)
		r.Post("/purchase", h.purchase)
		r.Post("/revoke", h.revokeLicense)
		r.Post("/extend", h.extendLicense)
		r.Get("/valid/{cid}/{account}", h.hasValidLicense)
		r.Get("/{id}", h.licenseByID)
	})

	r.Post("/platform/fee", h.setPlatformFee)
	r.Get("/events", h.events)

	return r
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role    string `json:"role" validate:"required"`
		Account string `json:"account" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	err := h.ledger.GrantRole(actor(r), ledger.Role(req.Role), req.Account)
	h.metrics.ObserveOp("roles.grant", err)
	h.respond(w, err, map[string]any{"role": req.Role, "account": req.Account})
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role    string `json:"role" validate:"required"`
		Account string `json:"account" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	err := h.ledger.RevokeRole(actor(r), ledger.Role(req.Role), req.Account)
	h.metrics.ObserveOp("roles.revoke", err)
	h.respond(w, err, map[string]any{"role": req.Role, "account": req.Account})
}

func (h *Handler) hasRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	account := chi.URLParam(r, "account")
	writeJSON(w, http.StatusOK, map[string]any{
		"role":    role,
		"account": account,
		"granted": h.ledger.HasRole(ledger.Role(role), account),
	})
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	err := h.ledger.Pause(actor(r))
	h.metrics.ObserveOp("system.pause", err)
	h.respond(w, err, map[string]any{"paused": true})
}

func (h *Handler) unpause(w http.ResponseWriter, r *http.Request) {
	err := h.ledger.Unpause(actor(r))
	h.metrics.ObserveOp("system.unpause", err)
	h.respond(w, err, map[string]any{"paused": false})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"paused":           h.ledger.IsPaused(),
		"platform_fee_bps": h.ledger.PlatformFee(),
		"manager_account":  h.ledger.ManagerAccount(),
		"total_supply":     h.formatAmount(h.ledger.TotalSupply()),
	})
}

func (h *Handler) mint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     string `json:"to" validate:"required"`
		Amount string `json:"amount" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := h.parseAmount(req.Amount)
	if err == nil {
		err = h.ledger.Mint(actor(r), req.To, amount)
	}
	h.metrics.ObserveOp("token.mint", err)
	h.respond(w, err, map[string]any{"to": req.To, "amount": req.Amount})
}

func (h *Handler) burn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string `json:"from" validate:"required"`
		Amount string `json:"amount" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := h.parseAmount(req.Amount)
	if err == nil {
		err = h.ledger.Burn(actor(r), req.From, amount)
	}
	h.metrics.ObserveOp("token.burn", err)
	h.respond(w, err, map[string]any{"from": req.From, "amount": req.Amount})
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     string `json:"to" validate:"required"`
		Amount string `json:"amount" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := h.parseAmount(req.Amount)
	if err == nil {
		err = h.ledger.Transfer(actor(r), req.To, amount)
	}
	h.metrics.ObserveOp("token.transfer", err)
	h.respond(w, err, map[string]any{"to": req.To, "amount": req.Amount})
}

func (h *Handler) transferFrom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner  string `json:"owner" validate:"required"`
		To     string `json:"to" validate:"required"`
		Amount string `json:"amount" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := h.parseAmount(req.Amount)
	if err == nil {
		err = h.ledger.TransferFrom(actor(r), req.Owner, req.To, amount)
	}
	h.metrics.ObserveOp("token.transfer_from", err)
	h.respond(w, err, map[string]any{"owner": req.Owner, "to": req.To, "amount": req.Amount})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Spender string `json:"spender" validate:"required"`
		Amount  string `json:"amount" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := h.parseAmount(req.Amount)
	if err == nil {
		err = h.ledger.Approve(actor(r), req.Spender, amount)
	}
	h.metrics.ObserveOp("token.approve", err)
	h.respond(w, err, map[string]any{"spender": req.Spender, "amount": req.Amount})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	writeJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"balance": h.formatAmount(h.ledger.BalanceOf(account)),
	})
}

func (h *Handler) allowance(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	spender := chi.URLParam(r, "spender")
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     owner,
		"spender":   spender,
		"allowance": h.formatAmount(h.ledger.Allowance(owner, spender)),
	})
}

func (h *Handler) totalSupply(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"total_supply": h.formatAmount(h.ledger.TotalSupply()),
	})
}

func (h *Handler) registerDataset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cid         string `json:"cid" validate:"required"`
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		Price       string `json:"price" validate:"required"`
		IsPublic    bool   `json:"is_public"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	price, err := h.parseAmount(req.Price)
	if err == nil {
		err = h.ledger.RegisterDataset(actor(r), req.Cid, req.Name, req.Description, price, req.IsPublic)
	}
	h.metrics.ObserveOp("dataset.register", err)
	h.respond(w, err, map[string]any{"cid": req.Cid})
}

func (h *Handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	count := h.ledger.DatasetCount()
	cids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		cid, err := h.ledger.DatasetCidAt(i)
		if err != nil {
			break
		}
		cids = append(cids, cid)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count, "cids": cids})
}

func (h *Handler) datasetInfo(w http.ResponseWriter, r *http.Request) {
	ds, err := h.ledger.GetDatasetInfo(chi.URLParam(r, "cid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.datasetView(ds))
}

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price string `json:"price" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	cid := chi.URLParam(r, "cid")
	price, err := h.parseAmount(req.Price)
	if err == nil {
		err = h.ledger.UpdateDatasetPrice(actor(r), cid, price)
	}
	h.metrics.ObserveOp("dataset.update_price", err)
	h.respond(w, err, map[string]any{"cid": cid, "price": req.Price})
}

func (h *Handler) updateVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsPublic *bool `json:"is_public" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	cid := chi.URLParam(r, "cid")
	err := h.ledger.UpdateDatasetVisibility(actor(r), cid, *req.IsPublic)
	h.metrics.ObserveOp("dataset.update_visibility", err)
	h.respond(w, err, map[string]any{"cid": cid, "is_public": *req.IsPublic})
}

func (h *Handler) removeDataset(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	err := h.ledger.RemoveDataset(actor(r), cid)
	h.metrics.ObserveOp("dataset.remove", err)
	h.respond(w, err, map[string]any{"cid": cid, "removed": true})
}

func (h *Handler) grantAccess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	cid := chi.URLParam(r, "cid")
	err := h.ledger.GrantAccess(actor(r), cid, req.Account)
	h.metrics.ObserveOp("dataset.grant_access", err)
	h.respond(w, err, map[string]any{"cid": cid, "account": req.Account})
}

func (h *Handler) hasAccess(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	account := chi.URLParam(r, "account")
	writeJSON(w, http.StatusOK, map[string]any{
		"cid":     cid,
		"account": account,
		"granted": h.ledger.HasAccess(cid, account),
	})
}

func (h *Handler) licenseAllowance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := h.parseAmount(req.Amount)
	if err == nil {
		err = h.ledger.CheckAndApproveTokenAllowance(actor(r), amount)
	}
	h.metrics.ObserveOp("license.allowance", err)
	h.respond(w, err, map[string]any{"amount": req.Amount, "spender": h.ledger.ManagerAccount()})
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cid string `json:"cid" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	lic, err := h.ledger.PurchaseLicense(actor(r), req.Cid)
	h.metrics.ObserveOp("license.purchase", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.licenseView(lic))
}

func (h *Handler) revokeLicense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cid      string `json:"cid" validate:"required"`
		Licensee string `json:"licensee" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	err := h.ledger.RevokeLicense(actor(r), req.Cid, req.Licensee)
	h.metrics.ObserveOp("license.revoke", err)
	h.respond(w, err, map[string]any{"cid": req.Cid, "licensee": req.Licensee})
}

func (h *Handler) extendLicense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cid           string `json:"cid" validate:"required"`
		Licensee      string `json:"licensee" validate:"required"`
		ExtensionDays int    `json:"extension_days" validate:"required,gt=0"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	extension := time.Duration(req.ExtensionDays) * 24 * time.Hour
	err := h.ledger.ExtendLicense(actor(r), req.Cid, req.Licensee, extension)
	h.metrics.ObserveOp("license.extend", err)
	h.respond(w, err, map[string]any{"cid": req.Cid, "licensee": req.Licensee, "extension_days": req.ExtensionDays})
}

func (h *Handler) hasValidLicense(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	account := chi.URLParam(r, "account")
	writeJSON(w, http.StatusOK, map[string]any{
		"cid":     cid,
		"account": account,
		"valid":   h.ledger.HasValidLicense(cid, account),
	})
}

func (h *Handler) licenseByID(w http.ResponseWriter, r *http.Request) {
	lic, err := h.ledger.LicenseByID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.licenseView(lic))
}

func (h *Handler) setPlatformFee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bps *uint32 `json:"bps" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	err := h.ledger.SetPlatformFee(actor(r), *req.Bps)
	h.metrics.ObserveOp("platform.set_fee", err)
	h.respond(w, err, map[string]any{"bps": *req.Bps})
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("INVALID_ARGUMENT", "since must be an unsigned integer"))
			return
		}
		since = parsed
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			writeJSON(w, http.StatusBadRequest, errorBody("INVALID_ARGUMENT", "limit must be between 1 and 1000"))
			return
		}
		limit = parsed
	}
	evs := h.ledger.EventsSince(since, limit)
	views := make([]map[string]any, 0, len(evs))
	for _, ev := range evs {
		views = append(views, map[string]any{
			"seq":     ev.Seq,
			"type":    string(ev.Type),
			"actor":   ev.Actor,
			"subject": ev.Subject,
			"payload": ev.Payload,
			"at":      ev.At.Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": views, "last_seq": h.ledger.LastEventSeq()})
}

func actor(r *http.Request) string {
	return shared.ActorFromContext(r.Context())
}
