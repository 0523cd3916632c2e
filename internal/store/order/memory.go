package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

// MemoryStore keeps orders in process memory. It is a test double only: state
// is lost on restart and nothing is shared between processes.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]*model.Order
	byUTR  map[string]string
	rows   map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: map[string]*model.Order{},
		byUTR:  map[string]string{},
		rows:   map[string]*sync.Mutex{},
	}
}

func (m *MemoryStore) Create(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.ID]; ok {
		return ErrDuplicateID
	}
	if _, ok := m.byUTR[order.UTR]; ok {
		return ErrDuplicateUTR
	}

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	order.SyncLegacyColumns()

	cp := *order
	m.orders[order.ID] = &cp
	m.byUTR[order.UTR] = order.ID
	m.rows[order.ID] = &sync.Mutex{}
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) GetByUTR(ctx context.Context, utr string) (*model.Order, error) {
	m.mu.Lock()
	id, ok := m.byUTR[utr]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MemoryStore) List(_ context.Context, filter model.OrderFilter) ([]model.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Order
	for _, o := range m.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Coin != "" && o.Coin != filter.Coin {
			continue
		}
		if filter.CreatedBefore != nil && !o.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		if filter.ApprovedBefore != nil && (o.ApprovedAt == nil || !o.ApprovedAt.Before(*filter.ApprovedBefore)) {
			continue
		}
		if filter.OnlyUnsettled && o.TxHash != "" {
			continue
		}
		out = append(out, *o)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := int64(len(out))
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []model.Order{}, total, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *MemoryStore) WithLock(_ context.Context, id string, fn MutateFunc) (*model.Order, error) {
	m.mu.Lock()
	row, ok := m.rows[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	row.Lock()
	defer row.Unlock()

	m.mu.Lock()
	working := *m.orders[id]
	m.mu.Unlock()

	changed, err := fn(&working)
	if err != nil || !changed {
		return &working, err
	}

	working.SyncLegacyColumns()
	working.UpdatedAt = time.Now()

	m.mu.Lock()
	saved := working
	m.orders[id] = &saved
	m.mu.Unlock()

	return &working, nil
}
