package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type InvestmentStore interface {
	CreateInvestmentAccount(ctx context.Context, a *core.InvestmentAccount) error
	GetInvestmentAccount(ctx context.Context, userID, id string) (core.InvestmentAccount, error)
	ListInvestmentAccounts(ctx context.Context, userID string) ([]core.InvestmentAccount, error)
	UpsertHolding(ctx context.Context, h *core.Holding) error
	GetHolding(ctx context.Context, userID, id string) (core.Holding, error)
	ListHoldings(ctx context.Context, userID string) ([]core.Holding, error)
	UpdateHoldingPrice(ctx context.Context, id string, price decimal.Decimal) error
	AddInvestmentTransaction(ctx context.Context, t *core.InvestmentTransaction, h *core.Holding) error
	ListInvestmentTransactions(ctx context.Context, accountID string) ([]core.InvestmentTransaction, error)
}

// TradeInput describes an investment account movement. Symbol, Quantity and
// Price only matter for BUY and SELL.
type TradeInput struct {
	AccountID string
	Type      core.InvestmentTxType
	Symbol    string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Amount    decimal.Decimal
	Date      time.Time
	Notes     string
}

// AccountPortfolio is an account with its holdings valued at current prices.
type AccountPortfolio struct {
	Account  core.InvestmentAccount `json:"account,omitempty"`
	Holdings []HoldingValue         `json:"holdings"`
	Value    decimal.Decimal        `json:"value"`
}

type HoldingValue struct {
	Holding    core.Holding    `json:"holding"`
	Value      decimal.Decimal `json:"value"`
	Allocation int             `json:"allocation"`
}

type InvestmentService struct {
	store    InvestmentStore
	audit    *Auditor
	onChange func(userID string)
}

func NewInvestmentService(store InvestmentStore, audit *Auditor) *InvestmentService {
	return &InvestmentService{store: store, audit: audit, onChange: func(string) {}}
}

func (s *InvestmentService) OnChange(fn func(userID string)) {
	if fn != nil {
		s.onChange = fn
	}
}

func (s *InvestmentService) CreateAccount(ctx context.Context, a core.InvestmentAccount) (core.InvestmentAccount, error) {
	if err := a.Validate(); err != nil {
		return a, err
	}
	if err := s.store.CreateInvestmentAccount(ctx, &a); err != nil {
		return a, fmt.Errorf("create investment account: %w", err)
	}
	s.audit.Record(ctx, a.UserID, "investment.account_created", map[string]any{"name": a.Name})
	s.onChange(a.UserID)
	return a, nil
}

// SaveHolding creates or overwrites the account's position in h.Symbol. The
// average cost is reset to the given price.
func (s *InvestmentService) SaveHolding(ctx context.Context, userID string, h core.Holding) (core.Holding, error) {
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	if h.Name == "" {
		h.Name = h.Symbol
	}
	h.AvgCost = h.CurrentPrice
	if err := h.Validate(); err != nil {
		return h, err
	}
	if _, err := s.store.GetInvestmentAccount(ctx, userID, h.AccountID); err != nil {
		return h, err
	}
	if err := s.store.UpsertHolding(ctx, &h); err != nil {
		return h, fmt.Errorf("save holding: %w", err)
	}
	s.audit.Record(ctx, userID, "investment.holding_saved", map[string]any{"accountId": h.AccountID, "symbol": h.Symbol})
	s.onChange(userID)
	return h, nil
}

// AddTransaction records a movement. BUY and SELL adjust the holding for
// Symbol, creating it on first purchase: quantity never drops below zero, a
// BUY re-averages the cost and a SELL keeps it.
func (s *InvestmentService) AddTransaction(ctx context.Context, userID string, in TradeInput) (core.InvestmentTransaction, error) {
	t := core.InvestmentTransaction{
		AccountID: in.AccountID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Price:     in.Price,
		Amount:    in.Amount,
		Date:      in.Date,
		Notes:     in.Notes,
	}
	if _, err := s.store.GetInvestmentAccount(ctx, userID, in.AccountID); err != nil {
		return t, err
	}

	var holding *core.Holding
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if (in.Type == core.Buy || in.Type == core.Sell) && symbol != "" {
		h, err := s.findOrOpenHolding(ctx, userID, in.AccountID, symbol, in.Price)
		if err != nil {
			return t, err
		}
		t.HoldingID = h.ID
		if in.Quantity.IsPositive() && in.Price.IsPositive() {
			applyTrade(&h, in.Type, in.Quantity, in.Price)
			holding = &h
		}
	}
	if err := t.Validate(); err != nil {
		return t, err
	}

	if err := s.store.AddInvestmentTransaction(ctx, &t, holding); err != nil {
		return t, fmt.Errorf("add investment transaction: %w", err)
	}
	s.audit.Record(ctx, userID, "investment.transaction", map[string]any{
		"accountId": in.AccountID,
		"type":      string(in.Type),
		"symbol":    symbol,
		"amount":    in.Amount.String(),
	})
	s.onChange(userID)
	return t, nil
}

func (s *InvestmentService) findOrOpenHolding(ctx context.Context, userID, accountID, symbol string, price decimal.Decimal) (core.Holding, error) {
	holdings, err := s.store.ListHoldings(ctx, userID)
	if err != nil {
		return core.Holding{}, fmt.Errorf("list holdings: %w", err)
	}
	for _, h := range holdings {
		if h.AccountID == accountID && h.Symbol == symbol {
			return h, nil
		}
	}
	h := core.Holding{AccountID: accountID, Symbol: symbol, Name: symbol, CurrentPrice: price}
	if err := s.store.UpsertHolding(ctx, &h); err != nil {
		return h, fmt.Errorf("open holding: %w", err)
	}
	return h, nil
}

// applyTrade updates quantity, average cost and last price for a trade of
// qty units at price.
func applyTrade(h *core.Holding, typ core.InvestmentTxType, qty, price decimal.Decimal) {
	delta := qty
	if typ == core.Sell {
		delta = qty.Neg()
	}
	newQty := decimal.Max(h.Quantity.Add(delta), decimal.Zero)
	if typ == core.Buy {
		cost := h.Quantity.Mul(h.AvgCost).Add(qty.Mul(price))
		h.AvgCost = cost.DivRound(decimal.Max(newQty, decimal.NewFromInt(1)), 8)
	}
	h.Quantity = newQty
	h.CurrentPrice = price
}

func (s *InvestmentService) UpdatePrice(ctx context.Context, userID, holdingID string, price decimal.Decimal) (core.Holding, error) {
	if price.IsNegative() {
		return core.Holding{}, core.ValidationError{Field: "price", Err: core.ErrInvalidAmount}
	}
	h, err := s.store.GetHolding(ctx, userID, holdingID)
	if err != nil {
		return h, err
	}
	if err := s.store.UpdateHoldingPrice(ctx, h.ID, price); err != nil {
		return h, fmt.Errorf("update price: %w", err)
	}
	h.CurrentPrice = price
	s.audit.Record(ctx, userID, "investment.price_update", map[string]any{"holdingId": h.ID, "price": price.String()})
	s.onChange(userID)
	return h, nil
}

// Portfolio values every account of the user. Allocation is each holding's
// whole-percent share of its account.
func (s *InvestmentService) Portfolio(ctx context.Context, userID string) ([]AccountPortfolio, error) {
	accounts, err := s.store.ListInvestmentAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list investment accounts: %w", err)
	}
	holdings, err := s.store.ListHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}

	byAccount := make(map[string][]core.Holding, len(accounts))
	for _, h := range holdings {
		byAccount[h.AccountID] = append(byAccount[h.AccountID], h)
	}

	out := make([]AccountPortfolio, len(accounts))
	for i, a := range accounts {
		p := AccountPortfolio{Account: a, Value: decimal.Zero}
		for _, h := range byAccount[a.ID] {
			v := h.Quantity.Mul(h.CurrentPrice)
			p.Holdings = append(p.Holdings, HoldingValue{Holding: h, Value: v})
			p.Value = p.Value.Add(v)
		}
		for j := range p.Holdings {
			p.Holdings[j].Allocation = progress(p.Holdings[j].Value, p.Value)
		}
		out[i] = p
	}
	return out, nil
}

func (s *InvestmentService) Transactions(ctx context.Context, userID, accountID string) ([]core.InvestmentTransaction, error) {
	if _, err := s.store.GetInvestmentAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListInvestmentTransactions(ctx, accountID)
}

// PortfolioValue is the total value of holdings at current prices.
func PortfolioValue(holdings []core.Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Quantity.Mul(h.CurrentPrice))
	}
	return total
}
