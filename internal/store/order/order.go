package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

const uniqueViolationCode = "23505"

type store struct {
	db *gorm.DB
}

func New(db *gorm.DB) IStore {
	return &store{db: db}
}

func (s *store) Create(ctx context.Context, order *model.Order) error {
	order.SyncLegacyColumns()

	// an id clash inserts nothing; a utr clash still raises the unique violation
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(order)
	if isDuplicateKey(res.Error) {
		return ErrDuplicateUTR
	}
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "create order")
	}
	if res.RowsAffected == 0 {
		return ErrDuplicateID
	}
	return nil
}

func (s *store) GetByID(ctx context.Context, id string) (*model.Order, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *store) GetByUTR(ctx context.Context, utr string) (*model.Order, error) {
	return s.first(s.db.WithContext(ctx).Where("utr = ?", utr))
}

func (s *store) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Order{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Coin != "" {
		q = q.Where("coin = ?", filter.Coin)
	}
	if filter.CreatedBefore != nil {
		q = q.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.ApprovedBefore != nil {
		q = q.Where("approved_at < ?", *filter.ApprovedBefore)
	}
	if filter.OnlyUnsettled {
		q = q.Where("tx_hash = ''")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count orders")
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var orders []model.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list orders")
	}
	return orders, total, nil
}

func (s *store) WithLock(ctx context.Context, id string, fn MutateFunc) (*model.Order, error) {
	var locked *model.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&o).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return pkgerrors.Wrap(err, "lock order")
		}

		changed, err := fn(&o)
		locked = &o
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		o.SyncLegacyColumns()
		o.UpdatedAt = time.Now()
		if err := tx.Save(&o).Error; err != nil {
			return pkgerrors.Wrap(err, "save order")
		}
		return nil
	})

	return locked, err
}

func (s *store) first(q *gorm.DB) (*model.Order, error) {
	var o model.Order
	err := q.First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get order")
	}
	return &o, nil
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
