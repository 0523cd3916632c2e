package store

import (
	"gorm.io/gorm"

	"github.com/egpaydcx/egpay-backend/internal/store/order"
)

type Store struct {
	Order order.IStore
}

func New(db *gorm.DB) *Store {
	return &Store{
		Order: order.New(db),
	}
}
