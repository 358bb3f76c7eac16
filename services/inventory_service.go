package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
)

// InventoryService is the single serialization point for a tier's capacity.
// Every mutation of the sold/reserved counters is one conditional UPDATE;
// there is no read-then-write pair anywhere in this file.
type InventoryService struct {
	app core.App
}

func NewInventoryService(app core.App) *InventoryService {
	return &InventoryService{app: app}
}

// Reservation is a durable hold on tier capacity. It must end in exactly one
// Commit or Release; Release is idempotent and a no-op after Commit.
type Reservation struct {
	svc    *InventoryService
	TierID string
	Qty    int

	mu   sync.Mutex
	done bool
}

// Reserve places a hold for qty units of the tier. The guard
// `sold + reserved + qty <= quantity` runs inside a single UPDATE, so two
// concurrent reservations can never jointly oversell the tier.
func (s *InventoryService) Reserve(ctx context.Context, tierID string, qty int) (*Reservation, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", status.ErrInvalidRequest)
	}

	res, err := s.app.DB().NewQuery(
		`UPDATE tickets
		 SET reserved = reserved + {:q}
		 WHERE id = {:id} AND sold + reserved + {:q} <= quantity`,
	).Bind(dbx.Params{"q": qty, "id": tierID}).WithContext(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: reserve tier %s: %v", status.ErrPersistence, tierID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: reserve tier %s: %v", status.ErrPersistence, tierID, err)
	}
	if rows == 0 {
		// Either the tier does not exist or the hold would oversell it.
		if _, ferr := s.app.FindRecordById("tickets", tierID); ferr != nil {
			return nil, fmt.Errorf("%w: unknown ticket tier %s", status.ErrInvalidRequest, tierID)
		}
		return nil, status.ErrInsufficientStock
	}

	return &Reservation{svc: s, TierID: tierID, Qty: qty}, nil
}

// Commit converts the hold into a permanent sale: sold grows by qty and the
// hold is dropped, in one statement. Called only after the booking and its
// attendee tickets are durable.
func (r *Reservation) Commit(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return fmt.Errorf("%w: reservation already finalized", status.ErrPersistence)
	}

	res, err := r.svc.app.DB().NewQuery(
		`UPDATE tickets
		 SET sold = sold + {:q}, reserved = reserved - {:q}
		 WHERE id = {:id} AND reserved >= {:q}`,
	).Bind(dbx.Params{"q": r.Qty, "id": r.TierID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("%w: commit tier %s: %v", status.ErrPersistence, r.TierID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: commit tier %s: %v", status.ErrPersistence, r.TierID, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: commit tier %s: hold missing", status.ErrPersistence, r.TierID)
	}

	r.done = true
	return nil
}

// Release drops the hold. Safe to call any number of times, and after
// Commit; only the first call on a live hold has an effect.
func (r *Reservation) Release(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}

	_, err := r.svc.app.DB().NewQuery(
		`UPDATE tickets
		 SET reserved = reserved - {:q}
		 WHERE id = {:id} AND reserved >= {:q}`,
	).Bind(dbx.Params{"q": r.Qty, "id": r.TierID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("%w: release tier %s: %v", status.ErrPersistence, r.TierID, err)
	}

	r.done = true
	return nil
}

// Availability reports how many units of the tier can still be sold.
func (s *InventoryService) Availability(ctx context.Context, tierID string) (int, error) {
	var row struct {
		Quantity int `db:"quantity"`
		Sold     int `db:"sold"`
		Reserved int `db:"reserved"`
	}
	err := s.app.DB().NewQuery(
		`SELECT quantity, sold, reserved FROM tickets WHERE id = {:id}`,
	).Bind(dbx.Params{"id": tierID}).WithContext(ctx).One(&row)
	if err != nil {
		return 0, fmt.Errorf("%w: availability tier %s: %v", status.ErrPersistence, tierID, err)
	}
	return row.Quantity - row.Sold - row.Reserved, nil
}
