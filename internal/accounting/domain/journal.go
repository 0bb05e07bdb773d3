package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Operation 账本操作类型
type Operation string

const (
	OpDeposit              Operation = "COLLATERAL_DEPOSIT"
	OpWithdraw             Operation = "COLLATERAL_WITHDRAW"
	OpClaimCollateralYield Operation = "COLLATERAL_YIELD_CLAIM"
	OpIssueCredit          Operation = "CREDIT_ISSUE"
	OpRepay                Operation = "CREDIT_REPAY"
	OpClaimCreditYield     Operation = "CREDIT_YIELD_CLAIM"
	OpFaucet               Operation = "CREDIT_FAUCET"
	OpCreateAsset          Operation = "ASSET_CREATE"
	OpDeactivateAsset      Operation = "ASSET_DEACTIVATE"
	OpPurchaseShares       Operation = "SHARE_PURCHASE"
	OpClaimAssetYield      Operation = "ASSET_YIELD_CLAIM"
)

// JournalEntry 账本流水，每次提交成功的变更操作一条
type JournalEntry struct {
	gorm.Model
	// 流水号，全局唯一
	TxID      string    `gorm:"column:tx_id;type:varchar(64);uniqueIndex;not null" json:"tx_id"`
	AccountID string    `gorm:"column:account_id;type:varchar(64);index;not null" json:"account_id"`
	Operation Operation `gorm:"column:operation;type:varchar(32);not null" json:"operation"`
	// 涉及的资产编号，非资产操作为 0
	AssetID uint `gorm:"column:asset_id;default:0" json:"asset_id,omitempty"`
	// 操作金额
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);default:0;not null" json:"amount"`
	// 涉及份额数，非份额操作为 0
	Shares int64 `gorm:"column:shares;default:0" json:"shares,omitempty"`
	// 操作发生时间（业务时钟）
	OccurredAt time.Time `gorm:"column:occurred_at;not null" json:"occurred_at"`
}

func (JournalEntry) TableName() string { return "ledger_journal" }

// JournalRepository 流水仓储接口
type JournalRepository interface {
	Create(ctx context.Context, entry *JournalEntry) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*JournalEntry, int64, error)
}

// LedgerEvent 提交后对外发布的账本事件
type LedgerEvent struct {
	TxID       string    `json:"tx_id"`
	AccountID  string    `json:"account_id"`
	Operation  Operation `json:"operation"`
	AssetID    uint      `json:"asset_id,omitempty"`
	Amount     string    `json:"amount"`
	Shares     int64     `json:"shares,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventFromEntry 由流水生成事件
func EventFromEntry(entry *JournalEntry) LedgerEvent {
	return LedgerEvent{
		TxID:       entry.TxID,
		AccountID:  entry.AccountID,
		Operation:  entry.Operation,
		AssetID:    entry.AssetID,
		Amount:     entry.Amount.String(),
		Shares:     entry.Shares,
		OccurredAt: entry.OccurredAt,
	}
}
