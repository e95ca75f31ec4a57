package vault

import (
	"context"
	"fmt"
	"sync"
)

type accountKey struct {
	token   string
	account string
}

// Bank is an in-process token ledger for local play and tests. Accounts
// are created on first credit; a debit that would overdraw fails and
// moves nothing.
type Bank struct {
	mu       sync.Mutex
	balances map[accountKey]int64
}

func NewBank() *Bank {
	return &Bank{balances: map[accountKey]int64{}}
}

// Mint credits an account out of thin air, e.g. funding the organizer
// before a game starts.
func (b *Bank) Mint(token, account string, amountMicros int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[accountKey{token, account}] += amountMicros
}

func (b *Bank) Balance(token, account string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[accountKey{token, account}]
}

func (b *Bank) TransferIn(_ context.Context, token, from string, amountMicros int64) error {
	return b.move(token, from, CustodyAccount, amountMicros)
}

func (b *Bank) TransferOut(_ context.Context, token, to string, amountMicros int64) error {
	return b.move(token, CustodyAccount, to, amountMicros)
}

func (b *Bank) move(token, from, to string, amountMicros int64) error {
	if amountMicros <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrTransferFailed)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	src := accountKey{token, from}
	if b.balances[src] < amountMicros {
		return fmt.Errorf("%w: %s holds %d micros of %s, need %d",
			ErrTransferFailed, from, b.balances[src], token, amountMicros)
	}
	b.balances[src] -= amountMicros
	b.balances[accountKey{token, to}] += amountMicros
	return nil
}
