package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type billRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Frequency   string `json:"frequency"`
	DueDay      int    `json:"dueDay"`
	DueDate     string `json:"dueDate"`
	NextDueDate string `json:"nextDueDate"`
	CategoryID  string `json:"categoryId"`
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.svc.Bills.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := NewFieldParser(s.opts.Location)
	b := core.Bill{
		UserID:      userID(r),
		Name:        sanitizeInput(req.Name),
		Amount:      p.Amount("amount", req.Amount),
		Currency:    req.Currency,
		Frequency:   core.Frequency(strings.ToUpper(strings.TrimSpace(req.Frequency))),
		DueDay:      req.DueDay,
		DueDate:     p.OptionalDate("dueDate", req.DueDate),
		NextDueDate: p.OptionalDate("nextDueDate", req.NextDueDate),
		CategoryID:  strings.TrimSpace(req.CategoryID),
	}
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.svc.Bills.Create(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleToggleBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Bills.Toggle(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleMarkBillPaid(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Bills.MarkPaid(r.Context(), userID(r), r.PathValue("id"), req.CreateTransaction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type goalRequest struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"targetAmount"`
	CurrentAmount string `json:"currentAmount"`
	TargetDate    string `json:"targetDate"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Goals.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := NewFieldParser(s.opts.Location)
	g := core.Goal{
		UserID:        userID(r),
		Name:          sanitizeInput(req.Name),
		TargetAmount:  p.Amount("targetAmount", req.TargetAmount),
		CurrentAmount: p.OptionalAmount("currentAmount", req.CurrentAmount),
		TargetDate:    p.OptionalDate("targetDate", req.TargetDate),
	}
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.svc.Goals.Create(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type contributionRequest struct {
	Amount            string `json:"amount"`
	CreateTransaction bool   `json:"createTransaction"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := NewFieldParser(s.opts.Location)
	amount := p.Amount("amount", req.Amount)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	progress, err := s.svc.Goals.Contribute(r.Context(), userID(r), r.PathValue("id"), amount, req.CreateTransaction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, progress)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Goals.Contributions(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type investmentAccountRequest struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Currency string `json:"currency"`
}

type holdingRequest struct {
	AccountID string `json:"accountId"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
}

type tradeRequest struct {
	AccountID string `json:"accountId"`
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Notes     string `json:"notes"`
}

type priceRequest struct {
	Price string `json:"price"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.svc.Investments.Portfolio(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

func (s *Server) handleCreateInvestmentAccount(w http.ResponseWriter, r *http.Request) {
	var req investmentAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Investments.CreateAccount(r.Context(), core.InvestmentAccount{
		UserID:   userID(r),
		Name:     sanitizeInput(req.Name),
		Provider: sanitizeInput(req.Provider),
		Currency: core.NormalizeCurrency(req.Currency),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListInvestmentTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Investments.Transactions(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleSaveHolding(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := NewFieldParser(s.opts.Location)
	h := core.Holding{
		AccountID:    strings.TrimSpace(req.AccountID),
		Symbol:       sanitizeInput(req.Symbol),
		Name:         sanitizeInput(req.Name),
		Quantity:     p.Amount("quantity", req.Quantity),
		CurrentPrice: p.Amount("price", req.Price),
	}
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.svc.Investments.SaveHolding(r.Context(), userID(r), h)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := NewFieldParser(s.opts.Location)
	price := p.Amount("price", req.Price)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	h, err := s.svc.Investments.UpdatePrice(r.Context(), userID(r), r.PathValue("id"), price)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleAddInvestmentTransaction(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := NewFieldParser(s.opts.Location)
	in := services.TradeInput{
		AccountID: strings.TrimSpace(req.AccountID),
		Type:      core.InvestmentTxType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Symbol:    sanitizeInput(req.Symbol),
		Quantity:  p.OptionalAmount("quantity", req.Quantity),
		Price:     p.OptionalAmount("price", req.Price),
		Amount:    p.Amount("amount", req.Amount),
		Date:      p.DateOr("date", req.Date, s.localNow()),
		Notes:     sanitizeInput(req.Notes),
	}
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.svc.Investments.AddTransaction(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
