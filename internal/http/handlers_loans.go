package http

import (
	"net/http"

	"fintrack/internal/core"
)

type loanRequest struct {
	Name           string `json:"name"`
	Principal      string `json:"principal"`
	APR            string `json:"apr"`
	TermMonths     int    `json:"termMonths"`
	PaymentDay     int    `json:"paymentDay"`
	MonthlyPayment string `json:"monthlyPayment"`
	CurrentBalance string `json:"currentBalance"`
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.svc.Loans.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// handleCreateLoan stores a loan. An omitted current balance starts at the
// principal.
func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := NewFieldParser(s.opts.Location)
	l := core.Loan{
		UserID:         userID(r),
		Name:           sanitizeInput(req.Name),
		Principal:      p.Amount("principal", req.Principal),
		APR:            p.Amount("apr", req.APR),
		TermMonths:     req.TermMonths,
		PaymentDay:     req.PaymentDay,
		MonthlyPayment: p.Amount("monthlyPayment", req.MonthlyPayment),
		CurrentBalance: p.OptionalAmount("currentBalance", req.CurrentBalance),
	}
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CurrentBalance == "" {
		l.CurrentBalance = l.Principal
	}

	created, err := s.svc.Loans.Create(r.Context(), l)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	ov, err := s.svc.Loans.Overview(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleListLoanPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.svc.Loans.Payments(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

type linkRequest struct {
	CreateTransaction bool `json:"createTransaction"`
}

func (s *Server) handleRecordLoanPayment(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := s.svc.Loans.RecordPayment(r.Context(), userID(r), r.PathValue("id"), req.CreateTransaction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

type balanceRequest struct {
	Balance string `json:"balance"`
}

func (s *Server) handleOverrideLoanBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := NewFieldParser(s.opts.Location)
	balance := p.Amount("balance", req.Balance)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := s.svc.Loans.OverrideBalance(r.Context(), userID(r), id, balance); err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := s.svc.Loans.Overview(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
