// Package application 信用账本应用服务
package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/primecredit/internal/credit/domain"
	"github.com/wyfcoding/primecredit/pkg/clock"
)

// Config 信用账本经济参数
type Config struct {
	// 债务利息年化
	DebtAPR decimal.Decimal
	// 持币收益年化
	TokenAPY decimal.Decimal
	// 发放手续费率
	OriginationFeeRate decimal.Decimal
	// 余额硬顶，零值表示不启用
	MaxTokenBalance decimal.Decimal
}

// Service 信用账本服务
// 额度上限由调用方（记账门面）按抵押价值计算后传入，保持两个账本解耦
type Service struct {
	repo   domain.CreditRepository
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger
}

func NewService(repo domain.CreditRepository, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		clock:  clk,
		cfg:    cfg,
		logger: logger.With("module", "credit"),
	}
}

// Issue 发放信用，maxCapacity 为抵押价值 * LTV
func (s *Service) Issue(ctx context.Context, accountID string, amount, maxCapacity decimal.Decimal) (*domain.Credit, decimal.Decimal, error) {
	credit, err := s.loadOrCreate(ctx, accountID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	credit.Accrue(s.clock.Now(), s.cfg.DebtAPR, s.cfg.TokenAPY)
	net, err := credit.Issue(amount, s.cfg.OriginationFeeRate, maxCapacity, s.cfg.MaxTokenBalance)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := s.repo.Save(ctx, credit); err != nil {
		return nil, decimal.Zero, err
	}

	s.logger.InfoContext(ctx, "credit issued",
		"account_id", accountID, "amount", amount, "net", net, "capacity", maxCapacity)
	return credit, net, nil
}

// Repay 偿还债务
func (s *Service) Repay(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Credit, error) {
	credit, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrCreditPositionNotFound) {
			return nil, domain.ErrInvalidAmount
		}
		return nil, err
	}

	credit.Accrue(s.clock.Now(), s.cfg.DebtAPR, s.cfg.TokenAPY)
	if err := credit.Repay(amount); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, credit); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "credit repaid", "account_id", accountID, "amount", amount)
	return credit, nil
}

// ClaimTokenYield 领取持币收益
func (s *Service) ClaimTokenYield(ctx context.Context, accountID string) (decimal.Decimal, *domain.Credit, error) {
	credit, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrCreditPositionNotFound) {
			return decimal.Zero, nil, domain.ErrNothingToClaim
		}
		return decimal.Zero, nil, err
	}

	credit.Accrue(s.clock.Now(), s.cfg.DebtAPR, s.cfg.TokenAPY)
	claimed, err := credit.ClaimTokenYield()
	if err != nil {
		return decimal.Zero, nil, err
	}
	if err := s.repo.Save(ctx, credit); err != nil {
		return decimal.Zero, nil, err
	}

	s.logger.InfoContext(ctx, "token yield claimed", "account_id", accountID, "amount", claimed)
	return claimed, credit, nil
}

// Debit 扣减余额，用于购买资产份额
func (s *Service) Debit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Credit, error) {
	credit, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrCreditPositionNotFound) {
			return nil, domain.ErrInsufficientBalance
		}
		return nil, err
	}

	credit.Accrue(s.clock.Now(), s.cfg.DebtAPR, s.cfg.TokenAPY)
	if err := credit.Debit(amount); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, credit); err != nil {
		return nil, err
	}
	return credit, nil
}

// CreditTokens 增加余额，用于资产收益派发
func (s *Service) CreditTokens(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Credit, error) {
	credit, err := s.loadOrCreate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	credit.Accrue(s.clock.Now(), s.cfg.DebtAPR, s.cfg.TokenAPY)
	if err := credit.CreditTokens(amount); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, credit); err != nil {
		return nil, err
	}
	return credit, nil
}

// Faucet 演示模式代币领取
func (s *Service) Faucet(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Credit, error) {
	credit, err := s.loadOrCreate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	credit.Accrue(s.clock.Now(), s.cfg.DebtAPR, s.cfg.TokenAPY)
	if err := credit.Faucet(amount, s.cfg.MaxTokenBalance); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, credit); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "faucet tokens granted", "account_id", accountID, "amount", amount)
	return credit, nil
}

// CurrentPosition 读取头寸快照，利息与收益在内存中结转到当前时刻，不落库
func (s *Service) CurrentPosition(ctx context.Context, accountID string) (*domain.Credit, error) {
	credit, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrCreditPositionNotFound) {
			return domain.NewCredit(accountID, s.clock.Now()), nil
		}
		return nil, err
	}
	credit.Accrue(s.clock.Now(), s.cfg.DebtAPR, s.cfg.TokenAPY)
	return credit, nil
}

func (s *Service) loadOrCreate(ctx context.Context, accountID string) (*domain.Credit, error) {
	credit, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrCreditPositionNotFound) {
			return domain.NewCredit(accountID, s.clock.Now()), nil
		}
		return nil, err
	}
	return credit, nil
}
