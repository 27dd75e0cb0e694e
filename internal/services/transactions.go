package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/categorizer"
	"fintrack/internal/core"
	"fintrack/internal/importer"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// recategorizeRulePriority is the priority of rules saved from a manual
// recategorization, above the zero default of hand-written rules.
const recategorizeRulePriority = 10

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *core.Transaction) error
	CreateTransactions(ctx context.Context, txs []core.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	UpdateTransactionCategory(ctx context.Context, userID, id, categoryID string, rule *core.CategorizationRule) error
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
}

// ImportRequest is a CSV import. Rows take precedence over CSV when both
// are set.
type ImportRequest struct {
	Mapping importer.Mapping
	Rows    []map[string]string
	CSV     io.Reader
	DryRun  bool
}

type ImportResult struct {
	Records []core.Transaction  `json:"records"`
	Errors  []importer.RowError `json:"errors"`
	Count   int                 `json:"count"`
}

// TransactionService orchestrates ledger writes, categorization and import.
type TransactionService struct {
	store      TransactionStore
	categories *CategorizationService
	audit      *Auditor
	onChange   func(userID string)
	loc        *time.Location
	now        func() time.Time
}

func NewTransactionService(store TransactionStore, categories *CategorizationService, audit *Auditor, loc *time.Location) *TransactionService {
	if loc == nil {
		loc = time.UTC
	}
	return &TransactionService{
		store:      store,
		categories: categories,
		audit:      audit,
		onChange:   func(string) {},
		loc:        loc,
		now:        time.Now,
	}
}

// OnChange registers a hook run after every successful write, used to
// invalidate per-user caches.
func (s *TransactionService) OnChange(fn func(userID string)) {
	if fn != nil {
		s.onChange = fn
	}
}

// Create stores a manual transaction. An explicit category wins; otherwise
// the user's rules and dictionary decide.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return t, err
	}
	if t.CategoryID == "" {
		id, err := s.categories.Categorize(ctx, t.UserID, t.Description, t.Merchant)
		if err != nil {
			return t, err
		}
		t.CategoryID = id
	}
	t.Source = core.SourceManual
	if err := s.store.CreateTransaction(ctx, &t); err != nil {
		return t, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created", log.NewFields().
		WithComponent(log.ComponentTransactions).
		WithUser(t.UserID).
		WithTransaction(t.ID, t.CategoryID, t.Amount.String()).
		ToSlice()...)
	s.audit.Record(ctx, t.UserID, "transaction.created", map[string]any{
		"amount":   t.Amount.String(),
		"currency": t.Currency,
		"date":     t.Date.UTC().Format(time.RFC3339),
	})
	s.onChange(t.UserID)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.audit.Record(ctx, userID, "transaction.deleted", map[string]any{"id": id})
	s.onChange(userID)
	return nil
}

// Recategorize sets the transaction's category. With saveRule, a rule is
// stored so future transactions from the same merchant (or, without a
// merchant, with the same description) land in the same category.
func (s *TransactionService) Recategorize(ctx context.Context, userID, id, categoryID string, saveRule bool) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return t, err
	}

	var rule *core.CategorizationRule
	if saveRule {
		rule = &core.CategorizationRule{
			UserID:     userID,
			Priority:   recategorizeRulePriority,
			CategoryID: categoryID,
		}
		if strings.TrimSpace(t.Merchant) != "" {
			rule.MerchantPattern = t.Merchant
		} else {
			rule.KeywordPattern = t.Description
		}
	}

	if err := s.store.UpdateTransactionCategory(ctx, userID, id, categoryID, rule); err != nil {
		return t, fmt.Errorf("recategorize transaction: %w", err)
	}
	t.CategoryID = categoryID
	if rule != nil {
		s.categories.Invalidate(userID)
	}

	s.audit.Record(ctx, userID, "transaction.recategorized", map[string]any{
		"id":         id,
		"categoryId": categoryID,
		"saveRule":   saveRule,
	})
	s.onChange(userID)
	return t, nil
}

// ListMonth returns the user's transactions in the calendar month containing
// month, newest first.
func (s *TransactionService) ListMonth(ctx context.Context, userID string, month time.Time) ([]core.Transaction, error) {
	month = month.In(s.loc)
	return s.store.ListTransactions(ctx, storage.TransactionFilter{
		UserID: userID,
		From:   core.StartOfMonth(month),
		To:     core.EndOfMonth(month),
	})
}

// Explain reports which rule or keyword would categorize the text.
func (s *TransactionService) Explain(ctx context.Context, userID, description, merchant string) (categorizer.Match, error) {
	return s.categories.Explain(ctx, userID, description, merchant)
}

// Import parses and categorizes the rows. A dry run only reports; a real
// import writes nothing unless every row is valid.
func (s *TransactionService) Import(ctx context.Context, userID string, req ImportRequest) (ImportResult, error) {
	rows := req.Rows
	if rows == nil && req.CSV != nil {
		var err error
		if rows, err = importer.ReadCSV(req.CSV); err != nil {
			return ImportResult{}, err
		}
	}

	rs, err := s.categories.RuleSet(ctx, userID)
	if err != nil {
		return ImportResult{}, err
	}
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("list categories: %w", err)
	}
	byName := make(map[string]string, len(categories))
	for _, c := range categories {
		byName[strings.ToLower(c.Name)] = c.ID
	}

	parsed, rowErrs := importer.Parse(rows, req.Mapping, s.loc)
	records := make([]core.Transaction, 0, len(parsed))
	for _, r := range parsed {
		categoryID := byName[strings.ToLower(r.Category)]
		if categoryID == "" {
			categoryID, _ = categorizer.Categorize(rs.input(r.Description, r.Merchant))
		}
		records = append(records, core.Transaction{
			UserID:        userID,
			Date:          r.Date,
			Description:   r.Description,
			Merchant:      r.Merchant,
			Amount:        r.Amount,
			Currency:      r.Currency,
			Account:       r.Account,
			PaymentMethod: r.PaymentMethod,
			CategoryID:    categoryID,
			Source:        core.SourceImport,
		})
	}

	if req.DryRun {
		s.audit.Record(ctx, userID, "transactions.import_dry_run", map[string]any{
			"rows":   len(rows),
			"valid":  len(records),
			"errors": len(rowErrs),
		})
		return ImportResult{Records: records, Errors: rowErrs, Count: len(records)}, nil
	}

	if len(rowErrs) > 0 {
		return ImportResult{Errors: rowErrs}, nil
	}

	if err := s.store.CreateTransactions(ctx, records); err != nil {
		return ImportResult{}, fmt.Errorf("import transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported",
		log.FieldComponent, log.ComponentTransactions, log.FieldUserID, userID, log.FieldCount, len(records))
	s.audit.Record(ctx, userID, "transactions.import", map[string]any{
		"rows":     len(rows),
		"inserted": len(records),
	})
	s.onChange(userID)
	return ImportResult{Records: records, Errors: rowErrs, Count: len(records)}, nil
}

// Export writes the user's transactions between from and to as CSV.
func (s *TransactionService) Export(ctx context.Context, userID string, from, to time.Time, w io.Writer) error {
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return importer.Export(w, txs, names)
}
