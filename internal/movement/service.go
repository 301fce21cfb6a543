package movement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockroom-ims/stockroom/internal/catalog"
	"github.com/stockroom-ims/stockroom/internal/docnum"
	"github.com/stockroom-ims/stockroom/internal/ledger"
	"github.com/stockroom-ims/stockroom/internal/shared"
)

// CatalogPort validates product and supplier references.
type CatalogPort interface {
	ResolveProduct(ctx context.Context, productID, variationID int64) (catalog.Resolution, error)
	ResolveSupplier(ctx context.Context, supplierID int64) (catalog.Resolution, error)
}

// NumberPort allocates document numbers.
type NumberPort interface {
	Next(ctx context.Context, kind docnum.Kind) (string, error)
}

// AuditPort records committed movements.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates one stock-in or stock-out request end to end:
// validate, resolve references, compute totals, allocate a number, then
// apply the ledger batch and persist the document as one unit of work.
type Service struct {
	repo     RepositoryPort
	catalog  CatalogPort
	numbers  NumberPort
	engine   *ledger.Engine
	audit    AuditPort
	attempts int
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// RetryAttempts bounds how often a contended unit of work is retried
	// before Contention surfaces to the caller. Defaults to 3.
	RetryAttempts int
}

// NewService builds Service. audit may be nil.
func NewService(repo RepositoryPort, cat CatalogPort, numbers NumberPort, audit AuditPort, cfg ServiceConfig) *Service {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Service{
		repo:     repo,
		catalog:  cat,
		numbers:  numbers,
		engine:   ledger.NewEngine(),
		audit:    audit,
		attempts: attempts,
	}
}

// ReceiveStock posts a goods receipt. All deltas are positive, so the
// ledger cannot report insufficient stock here; any failure leaves no
// observable state change.
func (s *Service) ReceiveStock(ctx context.Context, req StockInRequest) (StockInResponse, error) {
	if err := validateStockIn(req); err != nil {
		return StockInResponse{}, err
	}
	if err := s.resolveSupplier(ctx, req.SupplierID); err != nil {
		return StockInResponse{}, err
	}
	for i, item := range req.Items {
		if err := s.resolveProduct(ctx, i, item.ProductID, item.VariationID); err != nil {
			return StockInResponse{}, err
		}
	}

	lines := make([]Line, len(req.Items))
	deltas := make([]ledger.Delta, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		subTotal := item.UnitCost.Mul(decimal.NewFromInt(item.QuantityReceived))
		total = total.Add(subTotal)
		lines[i] = Line{
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Location:    item.Location,
			Quantity:    item.QuantityReceived,
			UnitCost:    item.UnitCost,
			SubTotal:    subTotal,
		}
		deltas[i] = ledger.Delta{
			Key:      ledger.Key{ProductID: item.ProductID, VariationID: item.VariationID, Location: item.Location},
			Quantity: item.QuantityReceived,
			Line:     i,
		}
	}

	number, err := s.numbers.Next(ctx, docnum.KindReceipt)
	if err != nil {
		return StockInResponse{}, fmt.Errorf("movement: allocate number: %w", err)
	}

	header := Header{
		Number:      number,
		Kind:        KindReceipt,
		SupplierID:  req.SupplierID,
		ActorID:     req.StockKeeperID,
		OccurredAt:  req.ReceivedDate,
		TotalAmount: total,
		Remarks:     req.Remarks,
	}
	header, lines, err = s.commit(ctx, header, lines, deltas)
	if err != nil {
		return StockInResponse{}, err
	}

	s.recordAudit(ctx, header, len(lines))

	resp := StockInResponse{
		GRNID:       header.ID,
		GRNNumber:   header.Number,
		TotalAmount: header.TotalAmount,
		CreatedAt:   header.CreatedAt,
	}
	for _, line := range lines {
		resp.Details = append(resp.Details, StockInDetail{
			GRNDetailID:      line.ID,
			ProductID:        line.ProductID,
			QuantityReceived: line.Quantity,
			UnitCost:         line.UnitCost,
			SubTotal:         line.SubTotal,
		})
		resp.StockUpdates = append(resp.StockUpdates, StockUpdate{
			ProductID:      line.ProductID,
			VariationID:    line.VariationID,
			QuantityBefore: line.QuantityBefore,
			QuantityAfter:  line.QuantityAfter,
		})
	}
	return resp, nil
}

// IssueStock posts a goods issue. Deltas are negative; a line that would
// drive its key negative rejects the whole request with no partial issue.
// IssuedTo is descriptive, not a catalog reference.
func (s *Service) IssueStock(ctx context.Context, req StockOutRequest) (StockOutResponse, error) {
	if err := validateStockOut(req); err != nil {
		return StockOutResponse{}, err
	}
	for i, item := range req.Items {
		if err := s.resolveProduct(ctx, i, item.ProductID, item.VariationID); err != nil {
			return StockOutResponse{}, err
		}
	}

	lines := make([]Line, len(req.Items))
	deltas := make([]ledger.Delta, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		subTotal := item.UnitCost.Mul(decimal.NewFromInt(item.QuantityIssued))
		total = total.Add(subTotal)
		lines[i] = Line{
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Location:    item.Location,
			Quantity:    item.QuantityIssued,
			UnitCost:    item.UnitCost,
			SubTotal:    subTotal,
		}
		deltas[i] = ledger.Delta{
			Key:      ledger.Key{ProductID: item.ProductID, VariationID: item.VariationID, Location: item.Location},
			Quantity: -item.QuantityIssued,
			Line:     i,
		}
	}

	number, err := s.numbers.Next(ctx, docnum.KindIssue)
	if err != nil {
		return StockOutResponse{}, fmt.Errorf("movement: allocate number: %w", err)
	}

	header := Header{
		Number:      number,
		Kind:        KindIssue,
		IssuedTo:    req.IssuedTo,
		IssueReason: req.IssueReason,
		ActorID:     req.StockKeeperID,
		OccurredAt:  req.IssueDate,
		TotalAmount: total,
		Remarks:     req.Remarks,
	}
	header, lines, err = s.commit(ctx, header, lines, deltas)
	if err != nil {
		return StockOutResponse{}, err
	}

	s.recordAudit(ctx, header, len(lines))

	resp := StockOutResponse{
		GINID:     header.ID,
		GINNumber: header.Number,
		CreatedAt: header.CreatedAt,
	}
	for _, line := range lines {
		resp.Details = append(resp.Details, StockOutDetail{
			GINDetailID:    line.ID,
			ProductID:      line.ProductID,
			QuantityIssued: line.Quantity,
			UnitCost:       line.UnitCost,
			SubTotal:       line.SubTotal,
		})
		resp.StockUpdates = append(resp.StockUpdates, StockUpdate{
			ProductID:      line.ProductID,
			VariationID:    line.VariationID,
			QuantityBefore: line.QuantityBefore,
			QuantityAfter:  line.QuantityAfter,
		})
	}
	return resp, nil
}

// GetDocument loads a committed document by number.
func (s *Service) GetDocument(ctx context.Context, number string) (Header, []Line, error) {
	if number == "" {
		return Header{}, nil, &ValidationError{Line: -1, Field: "number", Reason: "required"}
	}
	return s.repo.GetByNumber(ctx, number)
}

// commit runs the ledger batch and the document inserts as one unit of
// work, retrying the whole transaction when a stock key is contended.
func (s *Service) commit(ctx context.Context, header Header, lines []Line, deltas []ledger.Delta) (Header, []Line, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		committedHeader, committedLines, err := s.tryCommit(ctx, header, lines, deltas)
		if err == nil {
			return committedHeader, committedLines, nil
		}
		lastErr = err
		if !errors.Is(err, ledger.ErrContention) {
			break
		}
	}
	return Header{}, nil, lastErr
}

func (s *Service) tryCommit(ctx context.Context, header Header, lines []Line, deltas []ledger.Delta) (Header, []Line, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		snapshots, err := s.engine.ApplyBatch(ctx, tx.Ledger(), deltas)
		if err != nil {
			return err
		}
		for i := range lines {
			lines[i].QuantityBefore = snapshots[i].Before
			lines[i].QuantityAfter = snapshots[i].After
		}
		header.CreatedAt = time.Now().UTC()
		documentID, err := tx.InsertHeader(ctx, header)
		if err != nil {
			return err
		}
		header.ID = documentID
		lineIDs, err := tx.InsertLines(ctx, documentID, lines)
		if err != nil {
			return err
		}
		for i := range lines {
			lines[i].ID = lineIDs[i]
			lines[i].DocumentID = documentID
		}
		return nil
	})
	if err != nil {
		// Serialization failures can also surface from the document inserts
		// or the commit itself, not just the row locks.
		return Header{}, nil, ledger.MapError(err)
	}
	return header, lines, nil
}

func (s *Service) resolveSupplier(ctx context.Context, supplierID int64) error {
	res, err := s.catalog.ResolveSupplier(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("movement: resolve supplier: %w", err)
	}
	if !res.OK() {
		return &UnknownReferenceError{Line: -1, Entity: "supplier", ID: supplierID}
	}
	return nil
}

func (s *Service) resolveProduct(ctx context.Context, line int, productID, variationID int64) error {
	res, err := s.catalog.ResolveProduct(ctx, productID, variationID)
	if err != nil {
		return fmt.Errorf("movement: resolve product: %w", err)
	}
	if !res.OK() {
		return &UnknownReferenceError{Line: line, Entity: "product", ID: productID}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, header Header, lineCount int) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  header.ActorID,
		Action:   fmt.Sprintf("movement:%s", header.Kind),
		Entity:   "movement_document",
		EntityID: header.Number,
		Meta: map[string]any{
			"document_id":  header.ID,
			"total_amount": header.TotalAmount.String(),
			"line_count":   lineCount,
		},
	})
}

func validateStockIn(req StockInRequest) error {
	if req.SupplierID <= 0 {
		return &ValidationError{Line: -1, Field: "supplierId", Reason: "must be positive"}
	}
	if req.StockKeeperID <= 0 {
		return &ValidationError{Line: -1, Field: "stockKeeperId", Reason: "must be positive"}
	}
	if len(req.Items) == 0 {
		return &ValidationError{Line: -1, Field: "items", Reason: "at least one line required"}
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			return &ValidationError{Line: i, Field: "productId", Reason: "must be positive"}
		}
		if item.QuantityReceived <= 0 {
			return &ValidationError{Line: i, Field: "quantityReceived", Reason: "must be positive"}
		}
		if item.UnitCost.IsNegative() {
			return &ValidationError{Line: i, Field: "unitCost", Reason: "must not be negative"}
		}
	}
	return nil
}

func validateStockOut(req StockOutRequest) error {
	if req.StockKeeperID <= 0 {
		return &ValidationError{Line: -1, Field: "stockKeeperId", Reason: "must be positive"}
	}
	if req.IssuedTo == "" {
		return &ValidationError{Line: -1, Field: "issuedTo", Reason: "required"}
	}
	if req.IssueReason == "" {
		return &ValidationError{Line: -1, Field: "issueReason", Reason: "required"}
	}
	if len(req.Items) == 0 {
		return &ValidationError{Line: -1, Field: "items", Reason: "at least one line required"}
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			return &ValidationError{Line: i, Field: "productId", Reason: "must be positive"}
		}
		if item.QuantityIssued <= 0 {
			return &ValidationError{Line: i, Field: "quantityIssued", Reason: "must be positive"}
		}
		if item.UnitCost.IsNegative() {
			return &ValidationError{Line: i, Field: "unitCost", Reason: "must not be negative"}
		}
	}
	return nil
}
