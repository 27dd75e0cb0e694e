package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const loanColumns = `id, user_id, name, principal, apr, term_months, payment_day, monthly_payment, current_balance, created_at`

func scanLoan(s rowScanner) (core.Loan, error) {
	var (
		l       core.Loan
		created string
	)
	if err := s.Scan(&l.ID, &l.UserID, &l.Name, &l.Principal, &l.APR, &l.TermMonths, &l.PaymentDay,
		&l.MonthlyPayment, &l.CurrentBalance, &created); err != nil {
		return l, err
	}
	var err error
	l.CreatedAt, err = parseTime(created)
	return l, err
}

func (r *SQLiteRepository) CreateLoan(ctx context.Context, l *core.Loan) error {
	ensureID(&l.ID)
	if l.CreatedAt.IsZero() {
		l.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO loans (`+loanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Name, l.Principal, l.APR, l.TermMonths, l.PaymentDay,
		l.MonthlyPayment, l.CurrentBalance, formatTime(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetLoan(ctx context.Context, userID, id string) (core.Loan, error) {
	l, err := scanLoan(r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return l, notFound(err, "loan")
	}
	return l, nil
}

func (r *SQLiteRepository) ListLoans(ctx context.Context, userID string) ([]core.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var out []core.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateLoanBalance(ctx context.Context, userID, id string, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE loans SET current_balance = ? WHERE id = ? AND user_id = ?`, balance, id, userID)
	if err != nil {
		return fmt.Errorf("update loan balance: %w", err)
	}
	return checkAffected(res, "loan")
}

// RecordLoanPayment stores the payment, its optional linked transaction and
// the loan's new balance in one database transaction.
func (r *SQLiteRepository) RecordLoanPayment(ctx context.Context, p *core.LoanPayment, linked *core.Transaction, newBalance decimal.Decimal) error {
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if linked != nil {
			if err := insertTransaction(ctx, tx, linked, now); err != nil {
				return err
			}
			p.TransactionID = linked.ID
		}
		ensureID(&p.ID)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO loan_payments (id, loan_id, date, amount, principal, interest, status, transaction_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.LoanID, formatTime(p.Date), p.Amount, p.Principal, p.Interest, p.Status, p.TransactionID); err != nil {
			return fmt.Errorf("insert loan payment: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE loans SET current_balance = ? WHERE id = ?`, newBalance, p.LoanID)
		if err != nil {
			return fmt.Errorf("update loan balance: %w", err)
		}
		return checkAffected(res, "loan")
	})
}

func (r *SQLiteRepository) ListLoanPayments(ctx context.Context, loanID string) ([]core.LoanPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, loan_id, date, amount, principal, interest, status, transaction_id
		 FROM loan_payments WHERE loan_id = ? ORDER BY date DESC`, loanID)
	if err != nil {
		return nil, fmt.Errorf("list loan payments: %w", err)
	}
	defer rows.Close()

	var out []core.LoanPayment
	for rows.Next() {
		var (
			p    core.LoanPayment
			date string
		)
		if err := rows.Scan(&p.ID, &p.LoanID, &date, &p.Amount, &p.Principal, &p.Interest, &p.Status, &p.TransactionID); err != nil {
			return nil, fmt.Errorf("scan loan payment: %w", err)
		}
		if p.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
