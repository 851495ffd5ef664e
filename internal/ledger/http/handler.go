// Package ledgerhttp exposes the posting engine operations as a JSON API.
package ledgerhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/ledger"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Handler wires HTTP endpoints onto the posting engine.
type Handler struct {
	logger   *slog.Logger
	service  *ledger.Service
	validate *validator.Validate
}

// NewHandler constructs the ledger API handler.
func NewHandler(logger *slog.Logger, service *ledger.Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes attaches the engine's operations.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transaction-sets/{id}/submit", h.submitTransactionSet)
	r.Post("/transaction-sets/{id}/post", h.postTransactionSet)
	r.Post("/sales-invoices/{id}/post", h.postSalesInvoice)
	r.Post("/purchase-invoices/{id}/post", h.postPurchaseInvoice)
	r.Post("/payments/{id}/post", h.postPayment)
	r.Post("/payments/{id}/void", h.voidPayment)
	r.Post("/payments/{id}/allocations/{allocationID}/zero", h.zeroAllocation)
	r.Post("/journal-entries/{id}/reverse", h.reverseJournalEntry)
}

// scope extracts tenant and actor from the request context; the middleware in
// internal/app populates both from headers.
func scope(ctx context.Context) (uuid.UUID, int64, bool) {
	tenantID, ok := shared.TenantFromContext(ctx)
	if !ok {
		return uuid.Nil, 0, false
	}
	actorID, ok := shared.ActorFromContext(ctx)
	if !ok {
		return uuid.Nil, 0, false
	}
	return tenantID, actorID, true
}

func (h *Handler) submitTransactionSet(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := scope(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "tenant and actor required")
		return
	}
	setID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "transaction set id must be a UUID")
		return
	}
	set, err := h.service.SubmitTransactionSet(r.Context(), tenantID, actorID, setID)
	if err != nil {
		h.respondErr(w, "submit transaction set", err, func(msg string) any {
			return submitResponse{Error: msg}
		})
		return
	}
	httpx.JSON(w, http.StatusOK, submitResponse{Success: true, Status: string(set.Status)})
}

func (h *Handler) postTransactionSet(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := scope(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "tenant and actor required")
		return
	}
	setID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "transaction set id must be a UUID")
		return
	}
	result, err := h.service.PostTransactionSet(r.Context(), tenantID, actorID, setID)
	if err != nil {
		h.respondErr(w, "post transaction set", err, func(msg string) any {
			return postResponse{Error: msg}
		})
		return
	}
	httpx.JSON(w, http.StatusOK, postResponse{
		Success:        true,
		JournalEntryID: result.JournalEntryID,
		Idempotent:     result.Idempotent,
	})
}

type docPoster func(ctx context.Context, tenantID uuid.UUID, actorID int64, docID uuid.UUID, opts ledger.PostOptions) (ledger.PostResult, error)

func (h *Handler) postDoc(w http.ResponseWriter, r *http.Request, what string, post docPoster) {
	tenantID, actorID, ok := scope(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "tenant and actor required")
		return
	}
	docID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be a UUID")
		return
	}
	var req postDocRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	opts, err := req.options()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	result, err := post(r.Context(), tenantID, actorID, docID, opts)
	if err != nil {
		h.respondErr(w, "post "+what, err, func(msg string) any {
			return postResponse{Error: msg}
		})
		return
	}
	httpx.JSON(w, http.StatusOK, postResponse{
		Success:        true,
		JournalEntryID: result.JournalEntryID,
		Idempotent:     result.Idempotent,
	})
}

func (h *Handler) postSalesInvoice(w http.ResponseWriter, r *http.Request) {
	h.postDoc(w, r, "sales invoice", h.service.PostSalesInvoice)
}

func (h *Handler) postPurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	h.postDoc(w, r, "purchase invoice", h.service.PostPurchaseInvoice)
}

func (h *Handler) postPayment(w http.ResponseWriter, r *http.Request) {
	h.postDoc(w, r, "payment", h.service.PostPayment)
}

func (h *Handler) reverseJournalEntry(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := scope(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "tenant and actor required")
		return
	}
	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "journal entry id must be numeric")
		return
	}
	var req reverseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var at *time.Time
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
		at = &date
	}
	result, err := h.service.ReverseJournalEntry(r.Context(), tenantID, actorID, entryID, req.Reason, at)
	if err != nil {
		h.respondErr(w, "reverse journal entry", err, func(msg string) any {
			return reverseResponse{Error: msg}
		})
		return
	}
	httpx.JSON(w, http.StatusOK, reverseResponse{
		Success:                true,
		ReversalJournalEntryID: result.ReversalJournalEntryID,
		Idempotent:             result.Idempotent,
	})
}

func (h *Handler) voidPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := scope(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "tenant and actor required")
		return
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "payment id must be a UUID")
		return
	}
	var req voidRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
	}
	result, err := h.service.VoidPayment(r.Context(), tenantID, actorID, paymentID, req.Reason)
	if err != nil {
		h.respondErr(w, "void payment", err, func(msg string) any {
			return voidResponse{Error: msg}
		})
		return
	}
	httpx.JSON(w, http.StatusOK, voidResponse{
		Success:                true,
		Status:                 string(result.Status),
		ReversalJournalEntryID: result.ReversalJournalEntryID,
		Idempotent:             result.Idempotent,
	})
}

func (h *Handler) zeroAllocation(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := scope(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "tenant and actor required")
		return
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "payment id must be a UUID")
		return
	}
	allocationID, err := strconv.ParseInt(chi.URLParam(r, "allocationID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "allocation id must be numeric")
		return
	}
	if err := h.service.ZeroPaymentAllocation(r.Context(), tenantID, actorID, paymentID, allocationID); err != nil {
		h.respondErr(w, "zero allocation", err, func(msg string) any {
			return submitResponse{Error: msg}
		})
		return
	}
	httpx.JSON(w, http.StatusOK, submitResponse{Success: true})
}

// respondErr maps engine errors onto HTTP statuses: not-found 404, concurrency
// conflicts 409, other business rejections 422, everything else 500.
func (h *Handler) respondErr(w http.ResponseWriter, op string, err error, body func(msg string) any) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrSetNotFound),
		errors.Is(err, ledger.ErrIntentNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrDocNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrPostingInProgress),
		errors.Is(err, ledger.ErrAlreadyPosted):
		status = http.StatusConflict
	case ledger.IsBusinessRejection(err):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		if h.logger != nil {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.JSON(w, status, body("internal error"))
		return
	}
	httpx.JSON(w, status, body(err.Error()))
}
