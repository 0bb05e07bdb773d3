package domain

import "errors"

var ErrNotAuthorized = errors.New("account not authorized for this operation")

// Authorizer 资产创建与停用的机构账户授权
type Authorizer interface {
	CanManageAssets(accountID string) bool
}

// StaticAuthorizer 配置白名单授权，空白名单放行所有账户（演示模式）
type StaticAuthorizer struct {
	allowed map[string]struct{}
}

func NewStaticAuthorizer(accounts []string) *StaticAuthorizer {
	allowed := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		allowed[account] = struct{}{}
	}
	return &StaticAuthorizer{allowed: allowed}
}

func (a *StaticAuthorizer) CanManageAssets(accountID string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[accountID]
	return ok
}
