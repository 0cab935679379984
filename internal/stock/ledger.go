package stock

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Line is one (item, quantity) request against the ledger.
type Line struct {
	ProductID uuid.UUID `json:"catalog_item_id"`
	Quantity  int       `json:"quantity"`
}

// Shortfall reports a managed item that cannot cover the request.
type Shortfall struct {
	ProductID uuid.UUID `json:"catalog_item_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Availability is the outcome of a read-only check.
type Availability struct {
	OK         bool        `json:"ok"`
	Shortfalls []Shortfall `json:"shortfalls"`
}

// Ledger is the stock contract used by checkout and cancellation. A nil tx
// makes the ledger open its own transaction.
type Ledger interface {
	CheckAvailability(ctx context.Context, lines []Line) (Availability, error)
	Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error
	Release(ctx context.Context, tx *gorm.DB, lines []Line) error
}

type ledger struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewLedger(repo Repository, tx txRunner, logg *logger.Logger) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ledger{repo: repo, tx: tx, logg: logg}, nil
}

func (l *ledger) CheckAvailability(ctx context.Context, lines []Line) (Availability, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return Availability{}, err
	}
	records, err := l.repo.FindByProducts(ctx, productIDs(merged))
	if err != nil {
		return Availability{}, err
	}
	result := Availability{OK: true, Shortfalls: []Shortfall{}}
	for _, line := range merged {
		record, ok := records[line.ProductID]
		if !ok || !record.IsManaged {
			continue
		}
		if line.Quantity > record.Quantity {
			result.OK = false
			result.Shortfalls = append(result.Shortfalls, Shortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: record.Quantity,
			})
		}
	}
	return result, nil
}

// Reserve decrements every managed item or fails as a whole. Callers that
// pass their own tx get strict rollback with the rest of their writes.
func (l *ledger) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error {
	merged, err := mergeLines(lines)
	if err != nil {
		return err
	}
	if tx == nil {
		return l.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return l.reserve(ctx, l.repo.WithTx(tx), merged)
		})
	}
	return l.reserve(ctx, l.repo.WithTx(tx), merged)
}

func (l *ledger) reserve(ctx context.Context, repo Repository, lines []Line) error {
	records, err := repo.FindByProducts(ctx, productIDs(lines))
	if err != nil {
		return err
	}
	var shortfalls []Shortfall
	for _, line := range lines {
		record, ok := records[line.ProductID]
		if !ok || !record.IsManaged {
			continue
		}
		shortfall, err := l.decrement(ctx, repo, line)
		if err != nil {
			return err
		}
		if shortfall != nil {
			shortfalls = append(shortfalls, *shortfall)
		}
	}
	if len(shortfalls) > 0 {
		return pkgerrors.New(pkgerrors.CodeStockShortfall, "insufficient stock").
			WithDetails(map[string]any{"shortfalls": shortfalls})
	}
	return nil
}

// decrement runs the guarded update, re-reads once when it loses, and tries
// again only if the re-read still shows enough stock.
func (l *ledger) decrement(ctx context.Context, repo Repository, line Line) (*Shortfall, error) {
	ok, err := repo.DecrementIfAvailable(ctx, line.ProductID, line.Quantity)
	if err != nil || ok {
		return nil, err
	}
	current, err := repo.Find(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if current.Quantity < line.Quantity {
		return &Shortfall{ProductID: line.ProductID, Requested: line.Quantity, Available: current.Quantity}, nil
	}
	ok, err = repo.DecrementIfAvailable(ctx, line.ProductID, line.Quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		logCtx := l.logg.WithField(ctx, "catalog_item_id", line.ProductID.String())
		l.logg.Warn(logCtx, "stock reservation lost race twice")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock changed during reservation").
			WithDetails(map[string]any{"catalog_item_id": line.ProductID})
	}
	return nil, nil
}

// Release puts quantities back. Unmanaged or unknown items are skipped.
func (l *ledger) Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	merged, err := mergeLines(lines)
	if err != nil {
		return err
	}
	run := func(repo Repository) error {
		for _, line := range merged {
			if err := repo.Increment(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	}
	if tx == nil {
		return l.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return run(l.repo.WithTx(tx))
		})
	}
	return run(l.repo.WithTx(tx))
}

// mergeLines sums quantities per item and sorts by id so concurrent
// reservations touch rows in the same order.
func mergeLines(lines []Line) ([]Line, error) {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"catalog_item_id": line.ProductID})
		}
		totals[line.ProductID] += line.Quantity
	}
	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged, nil
}

func productIDs(lines []Line) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}
