package application

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
)

// ---- 内存仓储，Get/Save 均做值拷贝以模拟持久化隔离 ----

type memPositionRepo struct {
	mu sync.Mutex
	m  map[string]*collateraldomain.Position
}

func newMemPositionRepo() *memPositionRepo {
	return &memPositionRepo{m: make(map[string]*collateraldomain.Position)}
}

func (r *memPositionRepo) Save(_ context.Context, p *collateraldomain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.m[p.AccountID] = &clone
	return nil
}

func (r *memPositionRepo) GetByAccount(_ context.Context, accountID string) (*collateraldomain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.m[accountID]
	if !ok {
		return nil, collateraldomain.ErrPositionNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memPositionRepo) ListAll(_ context.Context, limit, offset int) ([]*collateraldomain.Position, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*collateraldomain.Position, 0, len(r.m))
	for _, p := range r.m {
		clone := *p
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

type memCreditRepo struct {
	mu sync.Mutex
	m  map[string]*creditdomain.Credit
}

func newMemCreditRepo() *memCreditRepo {
	return &memCreditRepo{m: make(map[string]*creditdomain.Credit)}
}

func (r *memCreditRepo) Save(_ context.Context, c *creditdomain.Credit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	r.m[c.AccountID] = &clone
	return nil
}

func (r *memCreditRepo) GetByAccount(_ context.Context, accountID string) (*creditdomain.Credit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[accountID]
	if !ok {
		return nil, creditdomain.ErrCreditPositionNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *memCreditRepo) ListAll(_ context.Context, limit, offset int) ([]*creditdomain.Credit, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*creditdomain.Credit, 0, len(r.m))
	for _, c := range r.m {
		clone := *c
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

type memAssetRepo struct {
	mu     sync.Mutex
	m      map[uint]*registrydomain.Asset
	nextID uint
}

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{m: make(map[uint]*registrydomain.Asset)}
}

func (r *memAssetRepo) Create(_ context.Context, a *registrydomain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	clone := *a
	r.m[a.ID] = &clone
	return nil
}

func (r *memAssetRepo) Save(_ context.Context, a *registrydomain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *a
	r.m[a.ID] = &clone
	return nil
}

func (r *memAssetRepo) GetByID(_ context.Context, assetID uint) (*registrydomain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.m[assetID]
	if !ok {
		return nil, registrydomain.ErrAssetNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *memAssetRepo) List(_ context.Context, filter registrydomain.ListFilter, limit, offset int) ([]*registrydomain.Asset, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*registrydomain.Asset, 0, len(r.m))
	for _, a := range r.m {
		if filter.AssetType != "" && a.AssetType != filter.AssetType {
			continue
		}
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (r *memAssetRepo) CountActive(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.m {
		if a.IsActive {
			n++
		}
	}
	return n, nil
}

type memHoldingRepo struct {
	mu sync.Mutex
	m  map[string]*marketplacedomain.Holding
}

func newMemHoldingRepo() *memHoldingRepo {
	return &memHoldingRepo{m: make(map[string]*marketplacedomain.Holding)}
}

func holdingKey(accountID string, assetID uint) string {
	return accountID + "/" + strconv.FormatUint(uint64(assetID), 10)
}

func (r *memHoldingRepo) Save(_ context.Context, h *marketplacedomain.Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *h
	r.m[holdingKey(h.AccountID, h.AssetID)] = &clone
	return nil
}

func (r *memHoldingRepo) GetByAccountAndAsset(_ context.Context, accountID string, assetID uint) (*marketplacedomain.Holding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.m[holdingKey(accountID, assetID)]
	if !ok {
		return nil, marketplacedomain.ErrHoldingNotFound
	}
	clone := *h
	return &clone, nil
}

func (r *memHoldingRepo) ListByAccount(_ context.Context, accountID string) ([]*marketplacedomain.Holding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*marketplacedomain.Holding, 0)
	for _, h := range r.m {
		if h.AccountID == accountID {
			clone := *h
			out = append(out, &clone)
		}
	}
	return out, nil
}

type memJournalRepo struct {
	mu      sync.Mutex
	entries []*domain.JournalEntry
}

func (r *memJournalRepo) Create(_ context.Context, e *domain.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *memJournalRepo) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.JournalEntry, 0)
	for _, e := range r.entries {
		if e.AccountID == accountID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

// passthroughTx 直接执行，不模拟回滚
type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemGuard() *memGuard { return &memGuard{seen: make(map[string]bool)} }

func (g *memGuard) Reserve(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e domain.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// ---- 测试装配 ----

type testEnv struct {
	facade    *Facade
	clk       *clock.FixedClock
	positions *memPositionRepo
	credits   *memCreditRepo
	assets    *memAssetRepo
	holdings  *memHoldingRepo
	journal   *memJournalRepo
	publisher *recordingPublisher
}

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := clock.NewFixed(t0)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	positions := newMemPositionRepo()
	credits := newMemCreditRepo()
	assets := newMemAssetRepo()
	holdings := newMemHoldingRepo()
	journal := &memJournalRepo{}
	publisher := &recordingPublisher{}

	collateralSvc := collateralapp.NewService(positions, clk, decimal.NewFromFloat(0.042), log)
	creditSvc := creditapp.NewService(credits, clk, creditapp.Config{
		DebtAPR:            decimal.NewFromFloat(0.035),
		TokenAPY:           decimal.NewFromFloat(0.045),
		OriginationFeeRate: decimal.NewFromFloat(0.003),
		MaxTokenBalance:    decimal.NewFromInt(10000),
	}, log)
	registrySvc := registryapp.NewService(assets, log)
	marketplaceSvc := marketplaceapp.NewService(holdings, clk, log)

	facade := NewFacade(FacadeOptions{
		Collateral:  collateralSvc,
		Credit:      creditSvc,
		Registry:    registrySvc,
		Marketplace: marketplaceSvc,
		Journal:     journal,
		Oracle:      domain.NewStaticOracle(map[string]float64{"MNT": 0.85, "METH": 2500}),
		Authorizer:  domain.NewStaticAuthorizer([]string{"inst-1"}),
		Transactor:  passthroughTx{},
		Publisher:   publisher,
		Guard:       newMemGuard(),
		Clock:       clk,
		Config: Config{
			LoanToValue:          decimal.NewFromFloat(0.80),
			LiquidationThreshold: decimal.NewFromFloat(1.2),
			CautionThreshold:     decimal.NewFromFloat(1.5),
		},
		Logger: log,
	})

	return &testEnv{
		facade:    facade,
		clk:       clk,
		positions: positions,
		credits:   credits,
		assets:    assets,
		holdings:  holdings,
		journal:   journal,
		publisher: publisher,
	}
}

func (e *testEnv) createAsset(t *testing.T, totalShares int64, pricePerShare int64, yieldBps int64) *registrydomain.Asset {
	t.Helper()
	asset, _, err := e.facade.CreateAsset(context.Background(), registryapp.CreateAssetCommand{
		Creator:          "inst-1",
		Name:             "Harbor Tower",
		AssetType:        registrydomain.AssetTypeRealEstate,
		Location:         "Singapore",
		TotalValue:       decimal.NewFromInt(totalShares * pricePerShare),
		TotalShares:      totalShares,
		PricePerShare:    decimal.NewFromInt(pricePerShare),
		ExpectedYieldBps: yieldBps,
	}, "")
	require.NoError(t, err)
	return asset
}

// ---- 用例 ----

func TestDepositIssueAndAccrual(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(1000), "")
	require.NoError(t, err)

	// 抵押价值 1000*0.85=850，额度 850*0.8=680
	credit, net, _, err := env.facade.IssueCredit(ctx, "acct-1", decimal.NewFromInt(500), "")
	require.NoError(t, err)
	assert.True(t, net.Equal(decimal.NewFromFloat(498.5)), "got %s", net)
	assert.True(t, credit.PrincipalIssued.Equal(decimal.NewFromInt(500)))

	env.clk.Advance(365 * 24 * time.Hour)

	view, err := env.facade.GetAccountView(ctx, "acct-1")
	require.NoError(t, err)

	// 质押收益 1000*4.2%，债务利息 500*3.5%，持币收益 498.5*4.5%
	assert.True(t, view.Collateral.AccruedYield.Equal(decimal.NewFromInt(42)),
		"got %s", view.Collateral.AccruedYield)
	assert.True(t, view.Credit.InterestAccrued.Equal(decimal.NewFromFloat(17.5)),
		"got %s", view.Credit.InterestAccrued)
	assert.True(t, view.Credit.TotalDebt.Equal(decimal.NewFromFloat(517.5)))
	assert.True(t, view.Credit.PendingTokenYield.Equal(decimal.NewFromFloat(22.4325)),
		"got %s", view.Credit.PendingTokenYield)

	expectedHF := decimal.NewFromInt(850).Div(decimal.NewFromFloat(517.5))
	assert.True(t, view.Credit.HealthFactor.Equal(expectedHF), "got %s", view.Credit.HealthFactor)
	assert.Equal(t, HealthStatusHealthy, view.Credit.HealthStatus)

	// 额度口径按有效债务：可借 680-517.5，使用率 517.5/680
	assert.True(t, view.Credit.BorrowCapacity.Equal(decimal.NewFromInt(680)))
	assert.True(t, view.Credit.AvailableCredit.Equal(decimal.NewFromFloat(162.5)),
		"got %s", view.Credit.AvailableCredit)
	expectedUtil := decimal.NewFromFloat(517.5).Div(decimal.NewFromInt(680))
	assert.True(t, view.Credit.Utilization.Equal(expectedUtil), "got %s", view.Credit.Utilization)
}

func TestIssueExceedsCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(1000), "")
	require.NoError(t, err)

	// 额度 680，发放 681 被拒
	_, _, _, err = env.facade.IssueCredit(ctx, "acct-1", decimal.NewFromInt(681), "")
	assert.ErrorIs(t, err, creditdomain.ErrExceedsBorrowCapacity)

	view, err := env.facade.GetAccountView(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, view.Credit.TotalDebt.IsZero(), "rejected issue must not create debt")
}

func TestWithdrawBlockedByOutstandingDebt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(1000), "")
	require.NoError(t, err)
	_, _, _, err = env.facade.IssueCredit(ctx, "acct-1", decimal.NewFromInt(500), "")
	require.NoError(t, err)

	// 提取 400 后剩余 600*0.85*0.8=408 < 债务 500，拒绝
	_, _, err = env.facade.Withdraw(ctx, "acct-1", decimal.NewFromInt(400), "")
	assert.ErrorIs(t, err, ErrCollateralLocked)

	// 提取 100 后剩余 900*0.85*0.8=612 >= 500，放行
	position, _, err := env.facade.Withdraw(ctx, "acct-1", decimal.NewFromInt(100), "")
	require.NoError(t, err)
	assert.True(t, position.StakedAmount.Equal(decimal.NewFromInt(900)))

	// 全额还清后可任意提取
	_, _, err = env.facade.Repay(ctx, "acct-1", decimal.NewFromInt(498), "")
	require.NoError(t, err)
	_, _, err = env.facade.Faucet(ctx, "acct-1", decimal.NewFromInt(2), "")
	require.NoError(t, err)
	_, _, err = env.facade.Repay(ctx, "acct-1", decimal.NewFromInt(2), "")
	require.NoError(t, err)

	_, _, err = env.facade.Withdraw(ctx, "acct-1", decimal.NewFromInt(900), "")
	assert.NoError(t, err)
}

func TestPurchaseAndAssetYield(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.createAsset(t, 100, 10, 650)

	_, _, err := env.facade.Faucet(ctx, "acct-1", decimal.NewFromInt(1000), "")
	require.NoError(t, err)

	holding, _, err := env.facade.PurchaseShares(ctx, "acct-1", asset.ID, 50, "")
	require.NoError(t, err)
	assert.Equal(t, int64(50), holding.SharesOwned)
	assert.True(t, holding.CostBasis.Equal(decimal.NewFromInt(500)))

	got, err := env.facade.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.AvailableShares)

	view, err := env.facade.GetAccountView(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, view.Credit.TokenBalance.Equal(decimal.NewFromInt(500)))

	// 一年后按成本 500 计 6.5% 收益，领取后并入余额
	env.clk.Advance(365 * 24 * time.Hour)
	claimed, _, err := env.facade.ClaimAssetYield(ctx, "acct-1", asset.ID, "")
	require.NoError(t, err)
	assert.True(t, claimed.Equal(decimal.NewFromFloat(32.5)), "got %s", claimed)

	view, err = env.facade.GetAccountView(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, view.Credit.TokenBalance.Equal(decimal.NewFromFloat(532.5)),
		"got %s", view.Credit.TokenBalance)
}

func TestPurchaseInsufficientSupply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.createAsset(t, 10, 1, 650)

	_, _, err := env.facade.Faucet(ctx, "acct-1", decimal.NewFromInt(100), "")
	require.NoError(t, err)

	_, _, err = env.facade.PurchaseShares(ctx, "acct-1", asset.ID, 11, "")
	assert.ErrorIs(t, err, registrydomain.ErrInsufficientSupply)
}

func TestConcurrentPurchasesConserveSupply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.createAsset(t, 100, 1, 650)

	const buyers = 20
	for i := 0; i < buyers; i++ {
		_, _, err := env.facade.Faucet(ctx, "acct-"+strconv.Itoa(i), decimal.NewFromInt(100), "")
		require.NoError(t, err)
	}

	// 20 个账户各买 10 份，供给 100，恰好 10 个成功
	var wg sync.WaitGroup
	var succeeded atomic.Int64
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()
			_, _, err := env.facade.PurchaseShares(ctx, accountID, asset.ID, 10, "")
			if err == nil {
				succeeded.Add(1)
			} else {
				assert.ErrorIs(t, err, registrydomain.ErrInsufficientSupply)
			}
		}("acct-" + strconv.Itoa(i))
	}
	wg.Wait()

	assert.Equal(t, int64(10), succeeded.Load())
	got, err := env.facade.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.AvailableShares)
}

func TestIdempotencyKeyRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(100), "key-1")
	require.NoError(t, err)

	_, _, err = env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(100), "key-1")
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	view, err := env.facade.GetAccountView(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, view.Collateral.StakedAmount.Equal(decimal.NewFromInt(100)))
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 首次请求被业务规则拒绝，占位须归还
	_, _, err := env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(-1), "key-1")
	assert.ErrorIs(t, err, collateraldomain.ErrInvalidAmount)

	// 同键重试放行
	_, _, err = env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(100), "key-1")
	require.NoError(t, err)

	// 成功后同键再提交仍拒绝
	_, _, err = env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(100), "key-1")
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestPauseSwitchRejectsMutations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.facade.SetPaused(true)
	_, _, err := env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(100), "")
	assert.ErrorIs(t, err, ErrEnginePaused)

	// 只读不受暂停影响
	_, err = env.facade.GetAccountView(ctx, "acct-1")
	assert.NoError(t, err)

	env.facade.SetPaused(false)
	_, _, err = env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(100), "")
	assert.NoError(t, err)
}

func TestViewReadsAreIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(1000), "")
	require.NoError(t, err)
	_, _, _, err = env.facade.IssueCredit(ctx, "acct-1", decimal.NewFromInt(500), "")
	require.NoError(t, err)

	env.clk.Advance(30 * 24 * time.Hour)

	first, err := env.facade.GetAccountView(ctx, "acct-1")
	require.NoError(t, err)
	second, err := env.facade.GetAccountView(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, first, second, "consecutive reads at the same instant must agree")

	// 读取不落库：持久化的结转时间仍是发放时刻
	stored, err := env.credits.GetByAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, t0, stored.LastAccrualAt)
}

func TestCreateAssetRequiresInstitution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.facade.CreateAsset(ctx, registryapp.CreateAssetCommand{
		Creator:       "acct-1",
		Name:          "Rogue Asset",
		AssetType:     registrydomain.AssetTypeRealEstate,
		TotalValue:    decimal.NewFromInt(100),
		TotalShares:   10,
		PricePerShare: decimal.NewFromInt(10),
	}, "")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestDeactivateAssetAuthzAndEffect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.createAsset(t, 100, 1, 650)

	_, _, err := env.facade.DeactivateAsset(ctx, "acct-1", asset.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, _, err = env.facade.Faucet(ctx, "acct-1", decimal.NewFromInt(100), "")
	require.NoError(t, err)
	_, _, err = env.facade.PurchaseShares(ctx, "acct-1", asset.ID, 10, "")
	require.NoError(t, err)

	got, _, err := env.facade.DeactivateAsset(ctx, "inst-1", asset.ID, "")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// 停用后拒绝新购买
	_, _, err = env.facade.PurchaseShares(ctx, "acct-1", asset.ID, 10, "")
	assert.ErrorIs(t, err, registrydomain.ErrAssetInactive)

	// 存量持仓照常计收益并可领取
	env.clk.Advance(365 * 24 * time.Hour)
	claimed, _, err := env.facade.ClaimAssetYield(ctx, "acct-1", asset.ID, "")
	require.NoError(t, err)
	assert.True(t, claimed.Equal(decimal.NewFromFloat(0.65)), "got %s", claimed)
}

func TestJournalAndEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.facade.Deposit(ctx, "acct-1", decimal.NewFromInt(1000), "")
	require.NoError(t, err)
	_, _, _, err = env.facade.IssueCredit(ctx, "acct-1", decimal.NewFromInt(100), "")
	require.NoError(t, err)

	entries, total, err := env.facade.ListJournal(ctx, "acct-1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	ops := make(map[domain.Operation]bool)
	for _, e := range entries {
		require.NotEmpty(t, e.TxID)
		ops[e.Operation] = true
	}
	assert.True(t, ops[domain.OpDeposit])
	assert.True(t, ops[domain.OpIssueCredit])

	// 每条流水对应一条已发布事件
	env.publisher.mu.Lock()
	defer env.publisher.mu.Unlock()
	assert.Len(t, env.publisher.events, 2)
}
