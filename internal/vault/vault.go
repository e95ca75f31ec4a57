// Package vault moves real reward tokens between accounts and game
// custody. Transfers are all-or-nothing; the prize-pool bookkeeping that
// caps redemptions lives in the game engine, not here.
package vault

import (
	"context"
	"errors"
)

// CustodyAccount is the ledger name tokens are parked under while the
// game holds them.
const CustodyAccount = "@vault"

var ErrTransferFailed = errors.New("token transfer failed")

// Transferor is the minimal custody contract the game engine needs.
type Transferor interface {
	TransferIn(ctx context.Context, token, from string, amountMicros int64) error
	TransferOut(ctx context.Context, token, to string, amountMicros int64) error
}
