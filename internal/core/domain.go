package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	SourceManual TransactionSource = "MANUAL"
	SourceImport TransactionSource = "IMPORT"
	SourceBill   TransactionSource = "BILL"
	SourceLoan   TransactionSource = "LOAN"
)

const (
	Once      Frequency = "ONCE"
	Weekly    Frequency = "WEEKLY"
	Monthly   Frequency = "MONTHLY"
	Quarterly Frequency = "QUARTERLY"
	Yearly    Frequency = "YEARLY"
)

const (
	Buy      InvestmentTxType = "BUY"
	Sell     InvestmentTxType = "SELL"
	Dividend InvestmentTxType = "DIVIDEND"
	Deposit  InvestmentTxType = "DEPOSIT"
	Withdraw InvestmentTxType = "WITHDRAW"
)

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
)

const PaymentPaid = "PAID"

type (
	TransactionSource   string
	Frequency           string
	InvestmentTxType    string
	NotificationChannel string

	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		Name         string    `json:"name"`
		PasswordHash string    `json:"-"`
		Currency     string    `json:"currency"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	Session struct {
		Token     string    `json:"token"`
		UserID    string    `json:"userId"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	Category struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Color  string `json:"color,omitempty"`
	}

	// CategorizationRule is a user-defined rule persisted alongside its owner.
	CategorizationRule struct {
		ID              string `json:"id"`
		UserID          string `json:"userId"`
		Priority        int    `json:"priority"`
		MerchantPattern string `json:"merchantPattern"`
		KeywordPattern  string `json:"keywordPattern"`
		CategoryID      string `json:"categoryId"`
	}

	KeywordEntry struct {
		ID         string `json:"id"`
		UserID     string `json:"userId"`
		Keyword    string `json:"keyword"`
		CategoryID string `json:"categoryId"`
	}

	Transaction struct {
		ID            string            `json:"id"`
		UserID        string            `json:"userId"`
		Date          time.Time         `json:"date"`
		Description   string            `json:"description"`
		Merchant      string            `json:"merchant,omitempty"`
		Amount        decimal.Decimal   `json:"amount"`
		Currency      string            `json:"currency"`
		CategoryID    string            `json:"categoryId"`
		Account       string            `json:"account,omitempty"`
		PaymentMethod string            `json:"paymentMethod,omitempty"`
		Notes         string            `json:"notes,omitempty"`
		Source        TransactionSource `json:"source"`
		CreatedAt     time.Time         `json:"createdAt"`
	}

	Bill struct {
		ID          string          `json:"id"`
		UserID      string          `json:"userId"`
		Name        string          `json:"name"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		Frequency   Frequency       `json:"frequency"`
		DueDay      int             `json:"dueDay"`
		DueDate     time.Time       `json:"dueDate"`
		NextDueDate time.Time       `json:"nextDueDate"`
		CategoryID  string          `json:"categoryId"`
		Active      bool            `json:"active"`
	}

	Goal struct {
		ID            string          `json:"id"`
		UserID        string          `json:"userId"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		TargetDate    time.Time       `json:"targetDate"`
	}

	Contribution struct {
		ID            string          `json:"id"`
		GoalID        string          `json:"goalId"`
		Amount        decimal.Decimal `json:"amount"`
		Date          time.Time       `json:"date"`
		TransactionID string          `json:"transactionId,omitempty"`
	}

	Loan struct {
		ID             string          `json:"id"`
		UserID         string          `json:"userId"`
		Name           string          `json:"name"`
		Principal      decimal.Decimal `json:"principal"`
		APR            decimal.Decimal `json:"apr"`
		TermMonths     int             `json:"termMonths"`
		PaymentDay     int             `json:"paymentDay"`
		MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
		CurrentBalance decimal.Decimal `json:"currentBalance"`
		CreatedAt      time.Time       `json:"createdAt"`
	}

	LoanPayment struct {
		ID            string          `json:"id"`
		LoanID        string          `json:"loanId"`
		Date          time.Time       `json:"date"`
		Amount        decimal.Decimal `json:"amount"`
		Principal     decimal.Decimal `json:"principal"`
		Interest      decimal.Decimal `json:"interest"`
		Status        string          `json:"status"`
		TransactionID string          `json:"transactionId,omitempty"`
	}

	InvestmentAccount struct {
		ID       string `json:"id"`
		UserID   string `json:"userId"`
		Name     string `json:"name"`
		Provider string `json:"provider,omitempty"`
		Currency string `json:"currency"`
	}

	Holding struct {
		ID           string          `json:"id"`
		AccountID    string          `json:"accountId"`
		Symbol       string          `json:"symbol"`
		Name         string          `json:"name"`
		Quantity     decimal.Decimal `json:"quantity"`
		AvgCost      decimal.Decimal `json:"avgCost"`
		CurrentPrice decimal.Decimal `json:"currentPrice"`
	}

	InvestmentTransaction struct {
		ID        string           `json:"id"`
		AccountID string           `json:"accountId"`
		HoldingID string           `json:"holdingId,omitempty"`
		Type      InvestmentTxType `json:"type"`
		Quantity  decimal.Decimal  `json:"quantity"`
		Price     decimal.Decimal  `json:"price"`
		Amount    decimal.Decimal  `json:"amount"`
		Date      time.Time        `json:"date"`
		Notes     string           `json:"notes,omitempty"`
	}

	Notification struct {
		ID          string              `json:"id"`
		UserID      string              `json:"userId"`
		Title       string              `json:"title"`
		Body        string              `json:"body"`
		Channel     NotificationChannel `json:"channel"`
		Read        bool                `json:"read"`
		DeliveredAt time.Time           `json:"deliveredAt,omitempty"`
		CreatedAt   time.Time           `json:"createdAt"`
	}

	Comment struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		Body      string    `json:"body"`
		CreatedAt time.Time `json:"createdAt"`
	}

	AuditEvent struct {
		ID        string         `json:"id"`
		UserID    string         `json:"userId"`
		Action    string         `json:"action"`
		Metadata  map[string]any `json:"metadata"`
		CreatedAt time.Time      `json:"createdAt"`
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrInvalidTxType      = errors.New("invalid investment transaction type")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 8 characters and contain a letter and a digit")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNothingToPay       = errors.New("loan has no outstanding balance")
)

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field string
	Err   error
}

func (e ValidationError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationErrors aggregates field errors from a single validation pass.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

func (v *ValidationErrors) add(field string, err error) {
	*v = append(*v, ValidationError{Field: field, Err: err})
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsValidation reports whether err carries field validation failures.
func IsValidation(err error) bool {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single ValidationError
	return errors.As(err, &single)
}

func (f Frequency) Valid() bool {
	switch f {
	case Once, Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (t InvestmentTxType) Valid() bool {
	switch t {
	case Buy, Sell, Dividend, Deposit, Withdraw:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	var errs ValidationErrors
	if t.Date.IsZero() {
		errs.add("date", ErrInvalidDate)
	}
	if strings.TrimSpace(t.Description) == "" {
		errs.add("description", ErrEmptyDescription)
	} else if len(t.Description) > 200 {
		errs.add("description", errors.New("description too long (max 200 characters)"))
	}
	if t.Amount.IsZero() {
		errs.add("amount", ErrInvalidAmount)
	}
	return errs.orNil()
}

func (b Bill) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(b.Name) == "" {
		errs.add("name", ErrEmptyName)
	}
	if !b.Amount.IsPositive() {
		errs.add("amount", ErrInvalidAmount)
	}
	if !b.Frequency.Valid() {
		errs.add("frequency", ErrInvalidFrequency)
	}
	if b.DueDay < 0 || b.DueDay > 31 {
		errs.add("dueDay", errors.New("due day must be between 1 and 31"))
	}
	if b.Frequency == Once && b.DueDate.IsZero() {
		errs.add("dueDate", errors.New("one-off bills need a due date"))
	}
	return errs.orNil()
}

func (g Goal) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(g.Name) == "" {
		errs.add("name", ErrEmptyName)
	}
	if !g.TargetAmount.IsPositive() {
		errs.add("targetAmount", ErrInvalidAmount)
	}
	if g.CurrentAmount.IsNegative() {
		errs.add("currentAmount", ErrInvalidAmount)
	}
	return errs.orNil()
}

// MaxCommentLength bounds a comment body, in characters.
const MaxCommentLength = 500

// Validate expects Body to be trimmed already.
func (c Comment) Validate() error {
	var errs ValidationErrors
	if c.Body == "" {
		errs.add("body", errors.New("comment is empty"))
	} else if utf8.RuneCountInString(c.Body) > MaxCommentLength {
		errs.add("body", fmt.Errorf("comment too long (max %d characters)", MaxCommentLength))
	}
	return errs.orNil()
}

func (l Loan) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(l.Name) == "" {
		errs.add("name", ErrEmptyName)
	}
	if !l.Principal.IsPositive() {
		errs.add("principal", ErrInvalidAmount)
	}
	if l.APR.IsNegative() {
		errs.add("apr", errors.New("apr cannot be negative"))
	}
	if l.TermMonths < 1 {
		errs.add("termMonths", errors.New("term must be at least one month"))
	}
	if l.PaymentDay < 1 || l.PaymentDay > 31 {
		errs.add("paymentDay", errors.New("payment day must be between 1 and 31"))
	}
	if !l.MonthlyPayment.IsPositive() {
		errs.add("monthlyPayment", ErrInvalidAmount)
	}
	if l.CurrentBalance.IsNegative() {
		errs.add("currentBalance", ErrInvalidAmount)
	}
	return errs.orNil()
}

func (a InvestmentAccount) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(a.Name) == "" {
		errs.add("name", ErrEmptyName)
	}
	return errs.orNil()
}

func (h Holding) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(h.Symbol) == "" {
		errs.add("symbol", ErrEmptyName)
	}
	if h.Quantity.IsNegative() {
		errs.add("quantity", ErrInvalidAmount)
	}
	if h.CurrentPrice.IsNegative() {
		errs.add("price", ErrInvalidAmount)
	}
	return errs.orNil()
}

func (t InvestmentTransaction) Validate() error {
	var errs ValidationErrors
	if !t.Type.Valid() {
		errs.add("type", ErrInvalidTxType)
	}
	if t.Amount.IsNegative() {
		errs.add("amount", ErrInvalidAmount)
	}
	if (t.Type == Buy || t.Type == Sell) && t.HoldingID == "" {
		errs.add("holdingId", errors.New("buy and sell need a holding"))
	}
	if t.Date.IsZero() {
		errs.add("date", ErrInvalidDate)
	}
	return errs.orNil()
}

// ValidateCredentials checks a registration email and password.
func ValidateCredentials(email, password string) error {
	var errs ValidationErrors
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		errs.add("email", ErrInvalidEmail)
	}
	if !strongPassword(password) {
		errs.add("password", ErrWeakPassword)
	}
	return errs.orNil()
}

func strongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
