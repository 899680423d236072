// Package notify provides ledger.Notifier implementations.
package notify

import (
	"context"
	"log"

	"github.com/warp/ledger-engine/ledger"
)

// Log writes notifications to a standard logger. The default stand-in for
// the bank's real messaging channel in dev and tests.
type Log struct {
	Logger *log.Logger
}

func NewLog() *Log {
	return &Log{Logger: log.Default()}
}

func (l *Log) Notify(_ context.Context, n ledger.Notification) error {
	l.Logger.Printf("notify %s: %s of %s on account %s", n.Owner, n.Kind, n.Amount, n.AccountID)
	return nil
}

var _ ledger.Notifier = (*Log)(nil)
