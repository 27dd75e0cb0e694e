package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type GoalStore interface {
	CreateGoal(ctx context.Context, g *core.Goal) error
	GetGoal(ctx context.Context, userID, id string) (core.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	AddContribution(ctx context.Context, c *core.Contribution, linked *core.Transaction) (decimal.Decimal, error)
	ListContributions(ctx context.Context, goalID string) ([]core.Contribution, error)
}

// GoalProgress is a goal with its completion percentage.
type GoalProgress struct {
	Goal     core.Goal `json:"goal"`
	Progress int       `json:"progress"`
}

type GoalService struct {
	store    GoalStore
	audit    *Auditor
	onChange func(userID string)
	now      func() time.Time
}

func NewGoalService(store GoalStore, audit *Auditor) *GoalService {
	return &GoalService{store: store, audit: audit, onChange: func(string) {}, now: time.Now}
}

func (s *GoalService) OnChange(fn func(userID string)) {
	if fn != nil {
		s.onChange = fn
	}
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return g, err
	}
	if err := s.store.CreateGoal(ctx, &g); err != nil {
		return g, fmt.Errorf("create goal: %w", err)
	}
	s.audit.Record(ctx, g.UserID, "goal.created", map[string]any{"name": g.Name})
	s.onChange(g.UserID)
	return g, nil
}

// Contribute adds amount to the goal. With createTx the contribution is also
// booked to the ledger and linked to it.
func (s *GoalService) Contribute(ctx context.Context, userID, goalID string, amount decimal.Decimal, createTx bool) (GoalProgress, error) {
	if !amount.IsPositive() {
		return GoalProgress{}, core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}
	goal, err := s.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return GoalProgress{}, err
	}

	now := s.now()
	c := &core.Contribution{GoalID: goal.ID, Amount: amount, Date: now}
	var linked *core.Transaction
	if createTx {
		linked = &core.Transaction{
			UserID:      userID,
			Date:        now,
			Description: "Goal contribution: " + goal.Name,
			Amount:      amount,
			Currency:    core.DefaultCurrency,
		}
	}

	current, err := s.store.AddContribution(ctx, c, linked)
	if err != nil {
		return GoalProgress{}, fmt.Errorf("add contribution: %w", err)
	}
	goal.CurrentAmount = current

	s.audit.Record(ctx, userID, "goal.contribution", map[string]any{"goalId": goal.ID, "amount": amount.String()})
	s.onChange(userID)
	return GoalProgress{Goal: goal, Progress: progress(goal.CurrentAmount, goal.TargetAmount)}, nil
}

func (s *GoalService) List(ctx context.Context, userID string) ([]GoalProgress, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]GoalProgress, len(goals))
	for i, g := range goals {
		out[i] = GoalProgress{Goal: g, Progress: progress(g.CurrentAmount, g.TargetAmount)}
	}
	return out, nil
}

func (s *GoalService) Contributions(ctx context.Context, userID, goalID string) ([]core.Contribution, error) {
	if _, err := s.store.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	return s.store.ListContributions(ctx, goalID)
}
