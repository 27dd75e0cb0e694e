package services

import (
	"context"
	"fmt"

	"fintrack/internal/cache"
	"fintrack/internal/categorizer"
	"fintrack/internal/core"

	"golang.org/x/sync/errgroup"
)

type RuleStore interface {
	ListRules(ctx context.Context, userID string) ([]core.CategorizationRule, error)
	ListKeywords(ctx context.Context, userID string) ([]core.KeywordEntry, error)
}

// RuleSet is a user's categorization input, converted once and cached.
type RuleSet struct {
	Rules      []categorizer.Rule
	Dictionary []categorizer.KeywordEntry
}

// CategorizationService loads a user's rules and dictionary and runs the
// categorizer over them.
type CategorizationService struct {
	store RuleStore
	cache cache.Cache[RuleSet]
}

// NewCategorizationService creates the service. c may be nil to disable caching.
func NewCategorizationService(store RuleStore, c cache.Cache[RuleSet]) *CategorizationService {
	return &CategorizationService{store: store, cache: c}
}

// RuleSet returns the user's rules and dictionary, fetching both concurrently
// on a cache miss.
func (s *CategorizationService) RuleSet(ctx context.Context, userID string) (RuleSet, error) {
	if s.cache != nil {
		if rs, ok := s.cache.Get(userID); ok {
			return rs, nil
		}
	}

	var (
		rules    []core.CategorizationRule
		keywords []core.KeywordEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rules, err = s.store.ListRules(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		keywords, err = s.store.ListKeywords(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return RuleSet{}, fmt.Errorf("load categorization rules: %w", err)
	}

	rs := RuleSet{
		Rules:      make([]categorizer.Rule, len(rules)),
		Dictionary: make([]categorizer.KeywordEntry, len(keywords)),
	}
	for i, r := range rules {
		rs.Rules[i] = categorizer.Rule{
			Priority:        r.Priority,
			MerchantPattern: r.MerchantPattern,
			KeywordPattern:  r.KeywordPattern,
			CategoryID:      r.CategoryID,
		}
	}
	for i, k := range keywords {
		rs.Dictionary[i] = categorizer.KeywordEntry{Keyword: k.Keyword, CategoryID: k.CategoryID}
	}

	if s.cache != nil {
		s.cache.Set(userID, rs)
	}
	return rs, nil
}

// Categorize returns the category for the text, or "" when nothing matched.
func (s *CategorizationService) Categorize(ctx context.Context, userID, description, merchant string) (string, error) {
	rs, err := s.RuleSet(ctx, userID)
	if err != nil {
		return "", err
	}
	id, _ := categorizer.Categorize(rs.input(description, merchant))
	return id, nil
}

// Explain reports which rule or keyword would categorize the text.
func (s *CategorizationService) Explain(ctx context.Context, userID, description, merchant string) (categorizer.Match, error) {
	rs, err := s.RuleSet(ctx, userID)
	if err != nil {
		return categorizer.Match{}, err
	}
	return categorizer.Explain(rs.input(description, merchant)), nil
}

// Invalidate drops the cached rule set after the user's rules change.
func (s *CategorizationService) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.Delete(userID)
	}
}

func (rs RuleSet) input(description, merchant string) categorizer.Input {
	return categorizer.Input{
		Description: description,
		Merchant:    merchant,
		Rules:       rs.Rules,
		Dictionary:  rs.Dictionary,
	}
}
