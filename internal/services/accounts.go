package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/defaults"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *core.User) error
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

type CategoryStore interface {
	CreateCategories(ctx context.Context, categories []core.Category) error
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	AddKeywords(ctx context.Context, entries []core.KeywordEntry) error
}

// AccountService registers users and manages their sessions.
type AccountService struct {
	users      UserStore
	categories CategoryStore
	sessions   *auth.Sessions
	defaults   *defaults.Set
	audit      *Auditor
}

func NewAccountService(users UserStore, categories CategoryStore, sessions *auth.Sessions, set *defaults.Set, audit *Auditor) *AccountService {
	return &AccountService{users: users, categories: categories, sessions: sessions, defaults: set, audit: audit}
}

// Register creates the user with the starter categories and keywords and
// signs them in.
func (s *AccountService) Register(ctx context.Context, email, name, password string) (core.User, core.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := core.ValidateCredentials(email, password); err != nil {
		return core.User{}, core.Session{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, core.Session{}, err
	}

	u := core.User{Email: email, Name: strings.TrimSpace(name), PasswordHash: hash, Currency: core.DefaultCurrency}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		return u, core.Session{}, err
	}
	if err := s.SeedDefaults(ctx, u.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to seed default categories", "user_id", u.ID, "error", err)
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return u, core.Session{}, err
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	s.audit.Record(ctx, u.ID, "user.registered", map[string]any{"email": u.Email})
	return u, sess, nil
}

// Login checks the password and opens a new session.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, core.Session, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return core.User{}, core.Session{}, core.ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return u, core.Session{}, err
	}
	s.audit.Record(ctx, u.ID, "user.login", nil)
	return u, sess, nil
}

func (s *AccountService) Logout(ctx context.Context, userID, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.audit.Record(ctx, userID, "user.logout", nil)
	return nil
}

func (s *AccountService) Me(ctx context.Context, userID string) (core.User, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *AccountService) Categories(ctx context.Context, userID string) ([]core.Category, error) {
	return s.categories.ListCategories(ctx, userID)
}

// SeedDefaults gives the user the starter categories and keyword dictionary.
// Categories the user already has are kept.
func (s *AccountService) SeedDefaults(ctx context.Context, userID string) error {
	if s.defaults == nil {
		return nil
	}
	cats := make([]core.Category, len(s.defaults.Categories))
	for i, c := range s.defaults.Categories {
		cats[i] = core.Category{UserID: userID, Name: c.Name, Color: c.Color}
	}
	if err := s.categories.CreateCategories(ctx, cats); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	stored, err := s.categories.ListCategories(ctx, userID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	byName := make(map[string]string, len(stored))
	for _, c := range stored {
		byName[strings.ToLower(c.Name)] = c.ID
	}

	entries := make([]core.KeywordEntry, 0, len(s.defaults.Keywords))
	for _, k := range s.defaults.Keywords {
		id, ok := byName[strings.ToLower(k.Category)]
		if !ok {
			continue
		}
		entries = append(entries, core.KeywordEntry{UserID: userID, Keyword: k.Keyword, CategoryID: id})
	}
	if err := s.categories.AddKeywords(ctx, entries); err != nil {
		return fmt.Errorf("seed keywords: %w", err)
	}
	return nil
}
