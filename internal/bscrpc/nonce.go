package bscrpc

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type nonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// nonceManager hands out hot wallet nonces one at a time so parallel
// transfers never sign two transactions with the same nonce.
type nonceManager struct {
	mu     sync.Mutex
	next   uint64
	synced bool
}

func (n *nonceManager) Next(ctx context.Context, src nonceSource, account common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	pending, err := src.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, err
	}

	nonce := pending
	if n.synced && n.next > pending {
		nonce = n.next
	}

	n.next = nonce + 1
	n.synced = true
	return nonce, nil
}

func (n *nonceManager) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next = 0
	n.synced = false
}
