// Package storage persists swap history. Persistence is optional; the
// CLI runs without it when no database is configured.
package storage

import (
	"context"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/storage/models"
)

// Store is the swap-history persistence interface.
type Store interface {
	SaveSwap(ctx context.Context, swap *models.Swap) error
	GetSwap(ctx context.Context, signature string) (*models.Swap, error)
	ListSwaps(ctx context.Context, walletAddress string, limit, offset int) ([]*models.Swap, error)
	UpdateSwapStatus(ctx context.Context, signature, status, errorMsg string) error

	SaveFeeTransfer(ctx context.Context, fee *models.FeeTransfer) error

	RunMigrations() error
	Close() error
}
