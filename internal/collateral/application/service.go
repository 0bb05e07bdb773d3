// Package application 质押账本应用服务
package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/primecredit/internal/collateral/domain"
	"github.com/wyfcoding/primecredit/pkg/clock"
)

// Service 质押账本服务
// 所有变更操作遵循 惰性结转 -> 校验 -> 变更 -> 落库 的顺序，
// 事务边界与账户级串行化由上层记账门面持有
type Service struct {
	repo   domain.PositionRepository
	clock  clock.Clock
	apy    decimal.Decimal
	logger *slog.Logger
}

func NewService(repo domain.PositionRepository, clk clock.Clock, apy decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		clock:  clk,
		apy:    apy,
		logger: logger.With("module", "collateral"),
	}
}

// APY 当前质押收益年化
func (s *Service) APY() decimal.Decimal { return s.apy }

// Deposit 存入质押
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Position, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	position, err := s.loadOrCreate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	position.Accrue(s.clock.Now(), s.apy)
	if err := position.Deposit(amount); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, position); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "collateral deposited", "account_id", accountID, "amount", amount)
	return position, nil
}

// Withdraw 提取质押，LTV 约束由记账门面在同一事务内先行校验
func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Position, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	position, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			return nil, domain.ErrInsufficientCollateral
		}
		return nil, err
	}

	position.Accrue(s.clock.Now(), s.apy)
	if err := position.Withdraw(amount); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, position); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "collateral withdrawn", "account_id", accountID, "amount", amount)
	return position, nil
}

// ClaimYield 领取质押收益，返回领取数额
func (s *Service) ClaimYield(ctx context.Context, accountID string) (decimal.Decimal, *domain.Position, error) {
	position, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			return decimal.Zero, nil, domain.ErrNothingToClaim
		}
		return decimal.Zero, nil, err
	}

	position.Accrue(s.clock.Now(), s.apy)
	claimed, err := position.ClaimYield()
	if err != nil {
		return decimal.Zero, nil, err
	}
	if err := s.repo.Save(ctx, position); err != nil {
		return decimal.Zero, nil, err
	}

	s.logger.InfoContext(ctx, "collateral yield claimed", "account_id", accountID, "amount", claimed)
	return claimed, position, nil
}

// CurrentPosition 读取头寸快照，收益在内存中结转到当前时刻，不落库
// 保证紧邻的两次读取结果一致
func (s *Service) CurrentPosition(ctx context.Context, accountID string) (*domain.Position, error) {
	position, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			return domain.NewPosition(accountID, s.clock.Now()), nil
		}
		return nil, err
	}
	position.Accrue(s.clock.Now(), s.apy)
	return position, nil
}

func (s *Service) loadOrCreate(ctx context.Context, accountID string) (*domain.Position, error) {
	position, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			return domain.NewPosition(accountID, s.clock.Now()), nil
		}
		return nil, err
	}
	return position, nil
}
