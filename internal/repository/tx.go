package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Tx exposes the repositories whose writes commit together.
type Tx struct {
	Approvals ApprovalRepository
	POAMs     POAMRepository
	Policies  PolicyRepository
}

// TxRunner runs a unit of work inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

type txRunner struct {
	db *sqlx.DB
}

// NewTxRunner builds a runner over db.
func NewTxRunner(db *sqlx.DB) TxRunner {
	return &txRunner{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise. fn's error is
// returned unchanged.
func (r *txRunner) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(Tx{
		Approvals: &approvalRepository{db: tx},
		POAMs:     &poamRepository{db: tx},
		Policies:  &policyRepository{db: tx},
	}); err != nil {
		return err
	}
	return tx.Commit()
}
