package movement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/stockroom-ims/stockroom/internal/ledger"
	"github.com/stockroom-ims/stockroom/internal/platform/httpx"
)

// StockReader serves the current-stock read endpoint.
type StockReader interface {
	Get(ctx context.Context, key ledger.Key) (ledger.Record, error)
}

// MetricsPort counts movement outcomes.
type MetricsPort interface {
	ObserveMovement(kind, outcome string)
}

// Handler wires the movement HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	stock    StockReader
	metrics  MetricsPort
	validate *validator.Validate
}

// NewHandler constructs Handler. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, stock StockReader, metrics MetricsPort) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		stock:    stock,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// MountRoutes registers movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/stock-in", h.handleStockIn)
	r.Post("/stock-out", h.handleStockOut)
	r.Get("/movements/{number}", h.handleGetMovement)
	r.Get("/stock", h.handleGetStock)
}

func (h *Handler) handleStockIn(w http.ResponseWriter, r *http.Request) {
	var req StockInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	resp, err := h.service.ReceiveStock(r.Context(), req)
	if err != nil {
		h.observe(KindReceipt, "rejected")
		h.respondError(w, r, err)
		return
	}
	h.observe(KindReceipt, "committed")
	h.logger.Info("goods receipt committed",
		slog.String("number", resp.GRNNumber),
		slog.Int("lines", len(resp.Details)),
		slog.Int64("actor_id", req.StockKeeperID))
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleStockOut(w http.ResponseWriter, r *http.Request) {
	var req StockOutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	resp, err := h.service.IssueStock(r.Context(), req)
	if err != nil {
		h.observe(KindIssue, "rejected")
		h.respondError(w, r, err)
		return
	}
	h.observe(KindIssue, "committed")
	h.logger.Info("goods issue committed",
		slog.String("number", resp.GINNumber),
		slog.Int("lines", len(resp.Details)),
		slog.Int64("actor_id", req.StockKeeperID))
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleGetMovement(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	header, lines, err := h.service.GetDocument(r.Context(), number)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: no document with number %s", httpx.ErrNotFound, number))
			return
		}
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newDocumentView(header, lines))
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, err := strconv.ParseInt(q.Get("productId"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "productId must be a positive integer")
		return
	}
	var variationID int64
	if s := q.Get("variationId"); s != "" {
		if variationID, err = strconv.ParseInt(s, 10, 64); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "variationId must be an integer")
			return
		}
	}
	key := ledger.Key{ProductID: productID, VariationID: variationID, Location: q.Get("location")}
	rec, err := h.stock.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: no stock record for key %s", httpx.ErrNotFound, key))
			return
		}
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stockView{
		ProductID:         rec.Key.ProductID,
		VariationID:       rec.Key.VariationID,
		Location:          rec.Key.Location,
		QuantityAvailable: rec.QuantityAvailable,
		ReorderLevel:      rec.ReorderLevel,
		UpdatedAt:         rec.UpdatedAt,
	})
}

// respondError maps the movement error taxonomy onto problem responses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *ValidationError
	var refErr *UnknownReferenceError
	var stockErr *ledger.InsufficientStockError
	switch {
	case errors.As(err, &validationErr):
		httpx.ProblemWithMeta(w, http.StatusBadRequest, "Validation Failed", validationErr.Error(),
			map[string]any{"line": validationErr.Line, "field": validationErr.Field})
	case errors.As(err, &refErr):
		httpx.ProblemWithMeta(w, http.StatusUnprocessableEntity, "Unknown Reference", refErr.Error(),
			map[string]any{"line": refErr.Line, "entity": refErr.Entity, "id": refErr.ID})
	case errors.As(err, &stockErr):
		httpx.ProblemWithMeta(w, http.StatusConflict, "Insufficient Stock", stockErr.Error(),
			map[string]any{"line": stockErr.Line, "shortfall": stockErr.Shortfall()})
	case errors.Is(err, ledger.ErrContention):
		httpx.Problem(w, http.StatusServiceUnavailable, "Contention", "stock keys are contended, retry the request")
	default:
		h.logger.Error("movement failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) observe(kind Kind, outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveMovement(string(kind), outcome)
	}
}

type documentView struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	Kind        Kind            `json:"kind"`
	SupplierID  int64           `json:"supplierId,omitempty"`
	IssuedTo    string          `json:"issuedTo,omitempty"`
	IssueReason string          `json:"issueReason,omitempty"`
	ActorID     int64           `json:"actorId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Remarks     string          `json:"remarks,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	Lines       []lineView      `json:"lines"`
}

type lineView struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"productId"`
	VariationID    int64           `json:"variationId,omitempty"`
	Location       string          `json:"location,omitempty"`
	Quantity       int64           `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	SubTotal       decimal.Decimal `json:"subTotal"`
	QuantityBefore int64           `json:"quantityBefore"`
	QuantityAfter  int64           `json:"quantityAfter"`
}

func newDocumentView(h Header, lines []Line) documentView {
	view := documentView{
		ID:          h.ID,
		Number:      h.Number,
		Kind:        h.Kind,
		SupplierID:  h.SupplierID,
		IssuedTo:    h.IssuedTo,
		IssueReason: h.IssueReason,
		ActorID:     h.ActorID,
		OccurredAt:  h.OccurredAt,
		TotalAmount: h.TotalAmount,
		Remarks:     h.Remarks,
		CreatedAt:   h.CreatedAt,
	}
	for _, line := range lines {
		view.Lines = append(view.Lines, lineView{
			ID:             line.ID,
			ProductID:      line.ProductID,
			VariationID:    line.VariationID,
			Location:       line.Location,
			Quantity:       line.Quantity,
			UnitCost:       line.UnitCost,
			SubTotal:       line.SubTotal,
			QuantityBefore: line.QuantityBefore,
			QuantityAfter:  line.QuantityAfter,
		})
	}
	return view
}

type stockView struct {
	ProductID         int64     `json:"productId"`
	VariationID       int64     `json:"variationId"`
	Location          string    `json:"location"`
	QuantityAvailable int64     `json:"quantityAvailable"`
	ReorderLevel      int64     `json:"reorderLevel"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
