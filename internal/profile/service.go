package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/samdwyer/xueba/internal/entity"
	"github.com/samdwyer/xueba/internal/gamedata"
	"github.com/samdwyer/xueba/internal/telemetry"
)

// Service implements Store for one player session on top of a Repository.
type Service struct {
	repo   Repository
	deck   []gamedata.CardDef
	logger *log.Logger
	tracer trace.Tracer

	hashCost int

	mu      sync.Mutex
	current *entity.Profile
}

// NewService creates a logged-out session. The starter deck is given to every new account.
func NewService(repo Repository, deck []gamedata.CardDef, logger *log.Logger, tracer trace.Tracer) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		repo:     repo,
		deck:     deck,
		logger:   logger,
		tracer:   telemetry.OrNoop(tracer),
		hashCost: bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost used for new passwords.
func (s *Service) SetHashCost(cost int) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	s.hashCost = cost
}

// Register creates an account with the starter deck. It returns false if the uid is taken.
func (s *Service) Register(ctx context.Context, uid, password, nickname string) (bool, error) {
	uid = strings.TrimSpace(uid)
	nickname = strings.TrimSpace(nickname)
	if uid == "" || password == "" {
		return false, ErrMissingCredentials
	}
	if nickname == "" {
		return false, ErrMissingNickname
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	acct := Account{
		Profile:      entity.NewStarterProfile(uid, nickname, s.deck),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create profile %s: %w", uid, err)
	}
	s.logger.Printf("profile: registered %s", uid)
	return true, nil
}

// RegisterAndLogin registers and immediately logs in on success.
func (s *Service) RegisterAndLogin(ctx context.Context, uid, password, nickname string) (bool, error) {
	ok, err := s.Register(ctx, uid, password, nickname)
	if err != nil || !ok {
		return ok, err
	}
	return s.Login(ctx, uid, password)
}

// Login starts a session. It returns false on an unknown uid or wrong password.
func (s *Service) Login(ctx context.Context, uid, password string) (bool, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" || password == "" {
		return false, ErrMissingCredentials
	}
	acct, err := s.repo.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load profile %s: %w", uid, err)
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		return false, nil
	}

	acct.Profile.Normalize()
	s.mu.Lock()
	s.current = acct.Profile
	s.mu.Unlock()
	return true, nil
}

// Logout ends the session.
func (s *Service) Logout() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns a copy of the logged-in profile, or nil.
func (s *Service) Current() *entity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// SaveProgress unlocks stages up to level and grants reward cards.
func (s *Service) SaveProgress(ctx context.Context, level int, newCards []entity.Card) error {
	ctx, span := s.tracer.Start(ctx, "profile.save_progress")
	defer span.End()
	span.SetAttributes(
		attribute.Int("profile.level", level),
		attribute.Int("profile.new_cards", len(newCards)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNotLoggedIn
	}

	next := s.current.Clone()
	next.RaiseLevel(level)
	next.AddCards(newCards)
	if err := s.repo.Update(ctx, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("save progress for %s: %w", next.UID, err)
	}
	s.current = next
	return nil
}

// AddExpToCards grants experience to the listed cards and returns the level-up lines.
func (s *Service) AddExpToCards(ctx context.Context, cardIDs []string, amount int) ([]string, error) {
	if amount <= 0 || len(cardIDs) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNotLoggedIn
	}

	next := s.current.Clone()
	lines := next.AddExpToCards(cardIDs, amount)
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("save exp for %s: %w", next.UID, err)
	}
	s.current = next
	return lines, nil
}

var _ Store = (*Service)(nil)
