package domain

import "time"

type LedgerEntryKind string

const (
	LedgerEntryKindRevenueRecognized LedgerEntryKind = "REVENUE_RECOGNIZED"
	LedgerEntryKindRefund            LedgerEntryKind = "REFUND"
	LedgerEntryKindAdjustment        LedgerEntryKind = "ADJUSTMENT"
)

// LedgerEntry is an append-only financial record.
type LedgerEntry struct {
	EntryID   string
	OrderID   string
	ItemID    string
	Kind      LedgerEntryKind
	Amount    Money
	Reason    string
	CreatedAt time.Time
}
