package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/importer"
	"fintrack/internal/services"
)

type transactionRequest struct {
	Date          string `json:"date"`
	Description   string `json:"description"`
	Merchant      string `json:"merchant"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CategoryID    string `json:"categoryId"`
	Account       string `json:"account"`
	PaymentMethod string `json:"paymentMethod"`
	Notes         string `json:"notes"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.localNow())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Transactions.ListMonth(r.Context(), userID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := NewFieldParser(s.opts.Location)
	t := core.Transaction{
		UserID:        userID(r),
		Date:          p.DateOr("date", req.Date, s.localNow()),
		Description:   sanitizeInput(req.Description),
		Merchant:      sanitizeInput(req.Merchant),
		Amount:        p.Amount("amount", req.Amount),
		Currency:      core.NormalizeCurrency(req.Currency),
		CategoryID:    strings.TrimSpace(req.CategoryID),
		Account:       sanitizeInput(req.Account),
		PaymentMethod: sanitizeInput(req.PaymentMethod),
		Notes:         sanitizeInput(req.Notes),
	}
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.svc.Transactions.Create(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recategorizeRequest struct {
	CategoryID string `json:"categoryId"`
	SaveRule   bool   `json:"saveRule"`
}

func (s *Server) handleRecategorize(w http.ResponseWriter, r *http.Request) {
	var req recategorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.CategoryID) == "" {
		writeError(w, r, core.ValidationError{Field: "categoryId", Err: core.ErrEmptyName})
		return
	}
	t, err := s.svc.Transactions.Recategorize(r.Context(), userID(r), r.PathValue("id"), req.CategoryID, req.SaveRule)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type explainRequest struct {
	Description string `json:"description"`
	Merchant    string `json:"merchant"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.svc.Transactions.Explain(r.Context(), userID(r), req.Description, req.Merchant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type importRequest struct {
	Mapping importer.Mapping    `json:"mapping"`
	Rows    []map[string]string `json:"rows"`
	DryRun  bool                `json:"dryRun"`
}

type importResponse struct {
	DryRun  bool                `json:"dryRun"`
	Count   int                 `json:"count"`
	Errors  []importer.RowError `json:"errors"`
	Records []core.Transaction  `json:"records,omitempty"`
}

// handleImport accepts either JSON rows with a column mapping, or a raw CSV
// body whose headers match the export format. A real import that has any
// row errors writes nothing and answers 422.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req services.ImportRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dryRun"))
		req = services.ImportRequest{
			Mapping: importer.IdentityMapping(),
			CSV:     http.MaxBytesReader(w, r.Body, maxImportBytes),
			DryRun:  dryRun,
		}
	} else {
		var body importRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		if body.Rows == nil {
			body.Rows = []map[string]string{}
		}
		req = services.ImportRequest{Mapping: body.Mapping, Rows: body.Rows, DryRun: body.DryRun}
	}

	res, err := s.svc.Transactions.Import(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Errors == nil {
		res.Errors = []importer.RowError{}
	}

	resp := importResponse{DryRun: req.DryRun, Count: res.Count, Errors: res.Errors}
	switch {
	case req.DryRun:
		resp.Records = res.Records
		writeJSON(w, http.StatusOK, resp)
	case len(res.Errors) > 0:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"errors": res.Errors,
		})
	default:
		writeJSON(w, http.StatusCreated, resp)
	}
}

// handleExport streams transactions as CSV. from and to default to the
// current month.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	now := s.localNow()
	p := NewFieldParser(s.opts.Location)
	from := p.DateOr("from", r.URL.Query().Get("from"), core.StartOfMonth(now))
	to := p.DateOr("to", r.URL.Query().Get("to"), core.EndOfMonth(now))
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	if to.Before(from) {
		writeError(w, r, core.ValidationError{Field: "to", Err: core.ErrInvalidDate})
		return
	}
	// An ISO "to" date covers the whole day.
	if to.Equal(core.StartOfDay(to)) {
		to = core.EndOfDay(to)
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="transactions-%s-%s.csv"`, from.Format(core.ISODate), to.Format(core.ISODate)))
	if err := s.svc.Transactions.Export(r.Context(), userID(r), from, to, w); err != nil {
		writeError(w, r, err)
	}
}
