// Package http 记账引擎 REST 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/primecredit/internal/accounting/application"
	"github.com/wyfcoding/primecredit/internal/accounting/domain"
	collateraldomain "github.com/wyfcoding/primecredit/internal/collateral/domain"
	creditdomain "github.com/wyfcoding/primecredit/internal/credit/domain"
	marketplacedomain "github.com/wyfcoding/primecredit/internal/marketplace/domain"
	registryapp "github.com/wyfcoding/primecredit/internal/registry/application"
	registrydomain "github.com/wyfcoding/primecredit/internal/registry/domain"
	"github.com/wyfcoding/primecredit/pkg/db"
)

// idempotencyHeader 幂等键请求头
const idempotencyHeader = "X-Idempotency-Key"

type Handler struct {
	facade *application.Facade
}

func NewHandler(facade *application.Facade) *Handler {
	return &Handler{facade: facade}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	collateral := r.Group("/collateral")
	{
		collateral.POST("/deposit", h.Deposit)
		collateral.POST("/withdraw", h.Withdraw)
		collateral.POST("/yield/claim", h.ClaimCollateralYield)
	}

	credit := r.Group("/credit")
	{
		credit.POST("/issue", h.IssueCredit)
		credit.POST("/repay", h.Repay)
		credit.POST("/yield/claim", h.ClaimCreditYield)
		credit.POST("/faucet", h.Faucet)
	}

	assets := r.Group("/assets")
	{
		assets.POST("", h.CreateAsset)
		assets.GET("", h.ListAssets)
		assets.GET("/:id", h.GetAsset)
		assets.POST("/:id/deactivate", h.DeactivateAsset)
	}

	marketplace := r.Group("/marketplace")
	{
		marketplace.POST("/purchase", h.PurchaseShares)
		marketplace.POST("/yield/claim", h.ClaimAssetYield)
	}

	accounts := r.Group("/accounts")
	{
		accounts.GET("/:id/view", h.GetAccountView)
		accounts.GET("/:id/journal", h.ListJournal)
	}

	r.POST("/admin/pause", h.SetPaused)
}

// writeError 领域错误到 HTTP 状态码的映射
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, collateraldomain.ErrInvalidAmount),
		errors.Is(err, creditdomain.ErrInvalidAmount),
		errors.Is(err, registrydomain.ErrInvalidAssetEconomics),
		errors.Is(err, marketplacedomain.ErrInvalidShares):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, registrydomain.ErrAssetNotFound),
		errors.Is(err, collateraldomain.ErrPositionNotFound),
		errors.Is(err, creditdomain.ErrCreditPositionNotFound),
		errors.Is(err, marketplacedomain.ErrHoldingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, application.ErrDuplicateRequest):
		status = http.StatusConflict
	case errors.Is(err, collateraldomain.ErrInsufficientCollateral),
		errors.Is(err, collateraldomain.ErrNothingToClaim),
		errors.Is(err, creditdomain.ErrExceedsBorrowCapacity),
		errors.Is(err, creditdomain.ErrInsufficientBalance),
		errors.Is(err, creditdomain.ErrMaxBalanceExceeded),
		errors.Is(err, creditdomain.ErrNothingToClaim),
		errors.Is(err, creditdomain.ErrFaucetDisabled),
		errors.Is(err, registrydomain.ErrAssetInactive),
		errors.Is(err, registrydomain.ErrInsufficientSupply),
		errors.Is(err, marketplacedomain.ErrNothingToClaim),
		errors.Is(err, application.ErrCollateralLocked):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, application.ErrEnginePaused),
		errors.Is(err, db.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseAmount(c *gin.Context, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount: " + raw})
		return decimal.Zero, false
	}
	return amount, true
}

func parseAssetID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return 0, false
	}
	return uint(id), true
}

type AmountReq struct {
	AccountID string `json:"account_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

type AccountReq struct {
	AccountID string `json:"account_id" binding:"required"`
}

func (h *Handler) Deposit(c *gin.Context) {
	var req AmountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	position, entry, err := h.facade.Deposit(c.Request.Context(), req.AccountID, amount, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "position": position})
}

func (h *Handler) Withdraw(c *gin.Context) {
	var req AmountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	position, entry, err := h.facade.Withdraw(c.Request.Context(), req.AccountID, amount, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "position": position})
}

func (h *Handler) ClaimCollateralYield(c *gin.Context) {
	var req AccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claimed, entry, err := h.facade.ClaimCollateralYield(c.Request.Context(), req.AccountID, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "claimed": claimed})
}

func (h *Handler) IssueCredit(c *gin.Context) {
	var req AmountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	credit, net, entry, err := h.facade.IssueCredit(c.Request.Context(), req.AccountID, amount, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "net_amount": net, "position": credit})
}

func (h *Handler) Repay(c *gin.Context) {
	var req AmountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	credit, entry, err := h.facade.Repay(c.Request.Context(), req.AccountID, amount, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "position": credit})
}

func (h *Handler) ClaimCreditYield(c *gin.Context) {
	var req AccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claimed, entry, err := h.facade.ClaimCreditYield(c.Request.Context(), req.AccountID, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "claimed": claimed})
}

func (h *Handler) Faucet(c *gin.Context) {
	var req AmountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	credit, entry, err := h.facade.Faucet(c.Request.Context(), req.AccountID, amount, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "position": credit})
}

type CreateAssetReq struct {
	Creator          string `json:"creator" binding:"required"`
	Name             string `json:"name" binding:"required"`
	AssetType        string `json:"asset_type" binding:"required"`
	Location         string `json:"location"`
	Description      string `json:"description"`
	TotalValue       string `json:"total_value" binding:"required"`
	TotalShares      int64  `json:"total_shares" binding:"required"`
	PricePerShare    string `json:"price_per_share" binding:"required"`
	ExpectedYieldBps int64  `json:"expected_yield_bps"`
}

func (h *Handler) CreateAsset(c *gin.Context) {
	var req CreateAssetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	totalValue, ok := parseAmount(c, req.TotalValue)
	if !ok {
		return
	}
	pricePerShare, ok := parseAmount(c, req.PricePerShare)
	if !ok {
		return
	}

	cmd := registryapp.CreateAssetCommand{
		Creator:          req.Creator,
		Name:             req.Name,
		AssetType:        registrydomain.AssetType(req.AssetType),
		Location:         req.Location,
		Description:      req.Description,
		TotalValue:       totalValue,
		TotalShares:      req.TotalShares,
		PricePerShare:    pricePerShare,
		ExpectedYieldBps: req.ExpectedYieldBps,
	}

	asset, entry, err := h.facade.CreateAsset(c.Request.Context(), cmd, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tx_id": entry.TxID, "asset": asset})
}

func (h *Handler) GetAsset(c *gin.Context) {
	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}

	asset, err := h.facade.GetAsset(c.Request.Context(), assetID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset})
}

func (h *Handler) ListAssets(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := registrydomain.ListFilter{
		AssetType:  registrydomain.AssetType(c.Query("asset_type")),
		ActiveOnly: c.DefaultQuery("active_only", "false") == "true",
	}

	assets, total, err := h.facade.ListAssets(c.Request.Context(), filter, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets, "total": total})
}

type DeactivateAssetReq struct {
	Requester string `json:"requester" binding:"required"`
}

func (h *Handler) DeactivateAsset(c *gin.Context) {
	assetID, ok := parseAssetID(c)
	if !ok {
		return
	}
	var req DeactivateAssetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, entry, err := h.facade.DeactivateAsset(c.Request.Context(), req.Requester, assetID, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "asset": asset})
}

type PurchaseReq struct {
	AccountID string `json:"account_id" binding:"required"`
	AssetID   uint   `json:"asset_id" binding:"required"`
	Shares    int64  `json:"shares" binding:"required"`
}

func (h *Handler) PurchaseShares(c *gin.Context) {
	var req PurchaseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	holding, entry, err := h.facade.PurchaseShares(c.Request.Context(), req.AccountID, req.AssetID, req.Shares, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "holding": holding})
}

type ClaimAssetYieldReq struct {
	AccountID string `json:"account_id" binding:"required"`
	AssetID   uint   `json:"asset_id" binding:"required"`
}

func (h *Handler) ClaimAssetYield(c *gin.Context) {
	var req ClaimAssetYieldReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claimed, entry, err := h.facade.ClaimAssetYield(c.Request.Context(), req.AccountID, req.AssetID, c.GetHeader(idempotencyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_id": entry.TxID, "claimed": claimed})
}

func (h *Handler) GetAccountView(c *gin.Context) {
	view, err := h.facade.GetAccountView(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) ListJournal(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, total, err := h.facade.ListJournal(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
}

type PauseReq struct {
	Paused *bool `json:"paused" binding:"required"`
}

func (h *Handler) SetPaused(c *gin.Context) {
	var req PauseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.facade.SetPaused(*req.Paused)
	c.JSON(http.StatusOK, gin.H{"paused": h.facade.IsPaused()})
}
