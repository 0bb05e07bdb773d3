// Package application 记账门面：跨账本操作编排、事务边界与串行化
package application

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/primecredit/internal/accounting/domain"
	collateralapp "github.com/wyfcoding/primecredit/internal/collateral/application"
	collateraldomain "github.com/wyfcoding/primecredit/internal/collateral/domain"
	creditapp "github.com/wyfcoding/primecredit/internal/credit/application"
	creditdomain "github.com/wyfcoding/primecredit/internal/credit/domain"
	marketplaceapp "github.com/wyfcoding/primecredit/internal/marketplace/application"
	marketplacedomain "github.com/wyfcoding/primecredit/internal/marketplace/domain"
	registryapp "github.com/wyfcoding/primecredit/internal/registry/application"
	registrydomain "github.com/wyfcoding/primecredit/internal/registry/domain"
	"github.com/wyfcoding/primecredit/pkg/clock"
	"github.com/wyfcoding/primecredit/pkg/metrics"
)

var (
	ErrEnginePaused     = errors.New("engine paused")
	ErrDuplicateRequest = errors.New("duplicate request")
	// 提取后剩余抵押不足以支撑现有债务
	ErrCollateralLocked = errors.New("collateral locked by outstanding debt")
)

// Transactor 事务边界抽象，生产实现为 pkg/db.WithTx
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 账本事件发布，提交后尽力送达
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event domain.LedgerEvent) error
}

// IdempotencyGuard 幂等键占位，Reserve 返回 false 表示键已被占用
// 操作失败时通过 Release 归还占位，同键重试得以放行
type IdempotencyGuard interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Config 门面经济参数
type Config struct {
	// 最大贷款价值比
	LoanToValue decimal.Decimal
	// 清算预警健康因子阈值
	LiquidationThreshold decimal.Decimal
	// 风险提示健康因子阈值
	CautionThreshold decimal.Decimal
}

// keyedMutex 按键互斥锁，锁对象惰性创建且不回收
// 账户与资产基数有限，常驻内存可接受
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// Facade 记账门面
// 变更操作的固定顺序：幂等占位 -> 暂停检查 -> 账户锁（先）/资产锁（后）->
// 单事务执行 -> 流水落库 -> 提交 -> 事件发布与指标上报
// 锁顺序恒为账户先于资产，避免交叉死锁
type Facade struct {
	collateral  *collateralapp.Service
	credit      *creditapp.Service
	registry    *registryapp.Service
	marketplace *marketplaceapp.Service

	journal    domain.JournalRepository
	oracle     domain.PriceOracle
	authorizer domain.Authorizer
	tx         Transactor
	publisher  EventPublisher
	guard      IdempotencyGuard
	metrics    *metrics.Metrics
	clock      clock.Clock
	cfg        Config
	logger     *slog.Logger

	accountLocks *keyedMutex
	assetLocks   *keyedMutex
	paused       atomic.Bool
	viewCache    ViewCache
}

// FacadeOptions 门面装配参数
type FacadeOptions struct {
	Collateral  *collateralapp.Service
	Credit      *creditapp.Service
	Registry    *registryapp.Service
	Marketplace *marketplaceapp.Service
	Journal     domain.JournalRepository
	Oracle      domain.PriceOracle
	Authorizer  domain.Authorizer
	Transactor  Transactor
	Publisher   EventPublisher
	Guard       IdempotencyGuard
	Metrics     *metrics.Metrics
	Clock       clock.Clock
	Config      Config
	Logger      *slog.Logger
	// 可为 nil，nil 表示不启用视图缓存
	ViewCache ViewCache
	Paused    bool
}

func NewFacade(opts FacadeOptions) *Facade {
	f := &Facade{
		collateral:   opts.Collateral,
		credit:       opts.Credit,
		registry:     opts.Registry,
		marketplace:  opts.Marketplace,
		journal:      opts.Journal,
		oracle:       opts.Oracle,
		authorizer:   opts.Authorizer,
		tx:           opts.Transactor,
		publisher:    opts.Publisher,
		guard:        opts.Guard,
		metrics:      opts.Metrics,
		clock:        opts.Clock,
		cfg:          opts.Config,
		logger:       opts.Logger.With("module", "accounting"),
		accountLocks: newKeyedMutex(),
		assetLocks:   newKeyedMutex(),
		viewCache:    opts.ViewCache,
	}
	f.paused.Store(opts.Paused)
	return f
}

// SetPaused 切换全局暂停开关
func (f *Facade) SetPaused(paused bool) {
	f.paused.Store(paused)
	f.logger.Info("engine pause switch changed", "paused", paused)
}

// IsPaused 当前暂停状态
func (f *Facade) IsPaused() bool {
	return f.paused.Load()
}

// begin 变更操作的公共前置：暂停检查与幂等占位
func (f *Facade) begin(ctx context.Context, idemKey string) error {
	if f.paused.Load() {
		return ErrEnginePaused
	}
	if idemKey != "" && f.guard != nil {
		ok, err := f.guard.Reserve(ctx, idemKey)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDuplicateRequest
		}
	}
	return nil
}

// record 在事务内写入流水
func (f *Facade) record(ctx context.Context, op domain.Operation, accountID string, assetID uint, amount decimal.Decimal, shares int64) (*domain.JournalEntry, error) {
	entry := &domain.JournalEntry{
		TxID:       uuid.NewString(),
		AccountID:  accountID,
		Operation:  op,
		AssetID:    assetID,
		Amount:     amount,
		Shares:     shares,
		OccurredAt: f.clock.Now(),
	}
	if err := f.journal.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// afterCommit 事件发布与视图缓存失效，失败仅记日志不影响已提交结果
func (f *Facade) afterCommit(ctx context.Context, entry *domain.JournalEntry) {
	if f.publisher != nil {
		if err := f.publisher.PublishLedgerEvent(ctx, domain.EventFromEntry(entry)); err != nil {
			f.logger.WarnContext(ctx, "ledger event publish failed",
				"tx_id", entry.TxID, "operation", entry.Operation, "error", err)
		}
	}
	if f.viewCache != nil {
		f.viewCache.Invalidate(ctx, entry.AccountID)
	}
}

func (f *Facade) rejected(err error) error {
	if f.metrics != nil {
		f.metrics.RejectedOpsTotal.Inc()
	}
	return err
}

// fail 变更操作失败的公共收尾：归还幂等占位，使同键重试可以再次执行
func (f *Facade) fail(ctx context.Context, idemKey string, err error) error {
	if idemKey != "" && f.guard != nil {
		if rerr := f.guard.Release(ctx, idemKey); rerr != nil {
			f.logger.WarnContext(ctx, "idempotency key release failed", "key", idemKey, "error", rerr)
		}
	}
	return f.rejected(err)
}

// collateralValue 抵押价值 = 质押量 * 参考价
func (f *Facade) collateralValue(staked decimal.Decimal) (decimal.Decimal, error) {
	price, err := f.oracle.PriceOf(domain.CollateralSymbol)
	if err != nil {
		return decimal.Zero, err
	}
	return staked.Mul(price), nil
}

// Deposit 存入抵押
func (f *Facade) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, idemKey string) (*collateraldomain.Position, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return nil, nil, err
	}

	lock := f.accountLocks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	var position *collateraldomain.Position
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		position, err = f.collateral.Deposit(txCtx, accountID, amount)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpDeposit, accountID, 0, amount, 0)
		return err
	})
	if err != nil {
		return nil, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.DepositsTotal.Inc()
	}
	return position, entry, nil
}

// Withdraw 提取抵押，剩余抵押价值必须仍覆盖 有效债务 / LTV
func (f *Facade) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, idemKey string) (*collateraldomain.Position, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return nil, nil, err
	}

	lock := f.accountLocks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	var position *collateraldomain.Position
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		current, err := f.collateral.CurrentPosition(txCtx, accountID)
		if err != nil {
			return err
		}
		creditPos, err := f.credit.CurrentPosition(txCtx, accountID)
		if err != nil {
			return err
		}

		debt := creditPos.TotalDebt()
		if debt.IsPositive() {
			remaining := current.StakedAmount.Sub(amount)
			remainingValue, err := f.collateralValue(remaining)
			if err != nil {
				return err
			}
			if remainingValue.Mul(f.cfg.LoanToValue).LessThan(debt) {
				return ErrCollateralLocked
			}
		}

		position, err = f.collateral.Withdraw(txCtx, accountID, amount)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpWithdraw, accountID, 0, amount, 0)
		return err
	})
	if err != nil {
		return nil, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.WithdrawalsTotal.Inc()
	}
	return position, entry, nil
}

// ClaimCollateralYield 领取质押收益
func (f *Facade) ClaimCollateralYield(ctx context.Context, accountID string, idemKey string) (decimal.Decimal, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return decimal.Zero, nil, err
	}

	lock := f.accountLocks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	var claimed decimal.Decimal
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		claimed, _, err = f.collateral.ClaimYield(txCtx, accountID)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpClaimCollateralYield, accountID, 0, claimed, 0)
		return err
	})
	if err != nil {
		return decimal.Zero, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.YieldClaimsTotal.Inc()
	}
	return claimed, entry, nil
}

// IssueCredit 发放信用，额度上限 = 抵押价值 * LTV，返回扣费后的净到账
func (f *Facade) IssueCredit(ctx context.Context, accountID string, amount decimal.Decimal, idemKey string) (*creditdomain.Credit, decimal.Decimal, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return nil, decimal.Zero, nil, err
	}

	lock := f.accountLocks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	var credit *creditdomain.Credit
	var net decimal.Decimal
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		position, err := f.collateral.CurrentPosition(txCtx, accountID)
		if err != nil {
			return err
		}
		value, err := f.collateralValue(position.StakedAmount)
		if err != nil {
			return err
		}
		capacity := value.Mul(f.cfg.LoanToValue)

		credit, net, err = f.credit.Issue(txCtx, accountID, amount, capacity)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpIssueCredit, accountID, 0, amount, 0)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.CreditIssuedTotal.Inc()
	}
	return credit, net, entry, nil
}

// Repay 偿还债务
func (f *Facade) Repay(ctx context.Context, accountID string, amount decimal.Decimal, idemKey string) (*creditdomain.Credit, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return nil, nil, err
	}

	lock := f.accountLocks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	var credit *creditdomain.Credit
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		credit, err = f.credit.Repay(txCtx, accountID, amount)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpRepay, accountID, 0, amount, 0)
		return err
	})
	if err != nil {
		return nil, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.RepaymentsTotal.Inc()
	}
	return credit, entry, nil
}

// ClaimCreditYield 领取持币收益并入余额
func (f *Facade) ClaimCreditYield(ctx context.Context, accountID string, idemKey string) (decimal.Decimal, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return decimal.Zero, nil, err
	}

	lock := f.accountLocks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	var claimed decimal.Decimal
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		claimed, _, err = f.credit.ClaimTokenYield(txCtx, accountID)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpClaimCreditYield, accountID, 0, claimed, 0)
		return err
	})
	if err != nil {
		return decimal.Zero, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.YieldClaimsTotal.Inc()
	}
	return claimed, entry, nil
}

// Faucet 演示模式代币领取
func (f *Facade) Faucet(ctx context.Context, accountID string, amount decimal.Decimal, idemKey string) (*creditdomain.Credit, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return nil, nil, err
	}

	lock := f.accountLocks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	var credit *creditdomain.Credit
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		credit, err = f.credit.Faucet(txCtx, accountID, amount)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpFaucet, accountID, 0, amount, 0)
		return err
	})
	if err != nil {
		return nil, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	return credit, entry, nil
}

// CreateAsset 机构账户创建可碎片化资产
func (f *Facade) CreateAsset(ctx context.Context, cmd registryapp.CreateAssetCommand, idemKey string) (*registrydomain.Asset, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return nil, nil, err
	}
	if !f.authorizer.CanManageAssets(cmd.Creator) {
		return nil, nil, f.fail(ctx, idemKey, domain.ErrNotAuthorized)
	}

	var asset *registrydomain.Asset
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		asset, err = f.registry.CreateAsset(txCtx, cmd)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpCreateAsset, cmd.Creator, asset.ID, cmd.TotalValue, cmd.TotalShares)
		return err
	})
	if err != nil {
		return nil, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.AssetsActive.Inc()
	}
	return asset, entry, nil
}

// DeactivateAsset 停用资产，仅创建方或机构账户可操作
func (f *Facade) DeactivateAsset(ctx context.Context, requester string, assetID uint, idemKey string) (*registrydomain.Asset, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return nil, nil, err
	}

	lock := f.assetLocks.get(assetLockKey(assetID))
	lock.Lock()
	defer lock.Unlock()

	var asset *registrydomain.Asset
	var wasActive bool
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		current, err := f.registry.GetAsset(txCtx, assetID)
		if err != nil {
			return err
		}
		if current.Creator != requester && !f.authorizer.CanManageAssets(requester) {
			return domain.ErrNotAuthorized
		}
		wasActive = current.IsActive

		asset, err = f.registry.Deactivate(txCtx, assetID)
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpDeactivateAsset, requester, assetID, decimal.Zero, 0)
		return err
	})
	if err != nil {
		return nil, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if wasActive && f.metrics != nil {
		f.metrics.AssetsActive.Dec()
	}
	return asset, entry, nil
}

// PurchaseShares 用信用代币余额购买资产份额
// 同一事务内完成：扣减可售份额 -> 扣减余额 -> 记录持仓
func (f *Facade) PurchaseShares(ctx context.Context, accountID string, assetID uint, shares int64, idemKey string) (*marketplacedomain.Holding, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return nil, nil, err
	}

	accountLock := f.accountLocks.get(accountID)
	accountLock.Lock()
	defer accountLock.Unlock()
	assetLock := f.assetLocks.get(assetLockKey(assetID))
	assetLock.Lock()
	defer assetLock.Unlock()

	var holding *marketplacedomain.Holding
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := f.registry.ReserveShares(txCtx, assetID, shares)
		if err != nil {
			return err
		}

		cost := asset.PricePerShare.Mul(decimal.NewFromInt(shares))
		if _, err := f.credit.Debit(txCtx, accountID, cost); err != nil {
			return err
		}

		holding, err = f.marketplace.RecordPurchase(txCtx, accountID, assetID, shares, cost, asset.YieldRate())
		if err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpPurchaseShares, accountID, assetID, cost, shares)
		return err
	})
	if err != nil {
		return nil, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.SharePurchasesTotal.Inc()
	}
	return holding, entry, nil
}

// ClaimAssetYield 领取份额收益并入信用代币余额
// 停用资产的存量持仓照常计息，此处不校验 IsActive
func (f *Facade) ClaimAssetYield(ctx context.Context, accountID string, assetID uint, idemKey string) (decimal.Decimal, *domain.JournalEntry, error) {
	if err := f.begin(ctx, idemKey); err != nil {
		return decimal.Zero, nil, err
	}

	accountLock := f.accountLocks.get(accountID)
	accountLock.Lock()
	defer accountLock.Unlock()
	assetLock := f.assetLocks.get(assetLockKey(assetID))
	assetLock.Lock()
	defer assetLock.Unlock()

	var claimed decimal.Decimal
	var entry *domain.JournalEntry
	err := f.tx.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := f.registry.GetAsset(txCtx, assetID)
		if err != nil {
			return err
		}

		claimed, _, err = f.marketplace.ClaimYield(txCtx, accountID, assetID, asset.YieldRate())
		if err != nil {
			return err
		}
		if _, err := f.credit.CreditTokens(txCtx, accountID, claimed); err != nil {
			return err
		}
		entry, err = f.record(txCtx, domain.OpClaimAssetYield, accountID, assetID, claimed, 0)
		return err
	})
	if err != nil {
		return decimal.Zero, nil, f.fail(ctx, idemKey, err)
	}

	f.afterCommit(ctx, entry)
	if f.metrics != nil {
		f.metrics.YieldClaimsTotal.Inc()
	}
	return claimed, entry, nil
}

// GetAsset 按编号查询资产
func (f *Facade) GetAsset(ctx context.Context, assetID uint) (*registrydomain.Asset, error) {
	return f.registry.GetAsset(ctx, assetID)
}

// ListAssets 按过滤条件分页列出资产
func (f *Facade) ListAssets(ctx context.Context, filter registrydomain.ListFilter, limit, offset int) ([]*registrydomain.Asset, int64, error) {
	return f.registry.ListAssets(ctx, filter, limit, offset)
}

// ListJournal 查询账户流水
func (f *Facade) ListJournal(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return f.journal.ListByAccount(ctx, accountID, limit, offset)
}

func assetLockKey(assetID uint) string {
	return "asset:" + strconv.FormatUint(uint64(assetID), 10)
}
