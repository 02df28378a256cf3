package member

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kochabx/membership/core/auth"
	"github.com/kochabx/membership/core/validator"
	"github.com/kochabx/membership/errors"
	"github.com/kochabx/membership/log"
)

// Service implements member management and doubles as the gate's
// identity provider.
type Service struct {
	repo     *Repository
	validate validator.Validator
}

// NewService creates the member service.
func NewService(repo *Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.Validate,
	}
}

// Register validates input, enforces email uniqueness and stores the
// member with a bcrypt credential and the default role.
func (s *Service) Register(ctx context.Context, in *RegisterInput) (*Member, error) {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, errors.BadRequest("%v", err)
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, errors.Conflict("email already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, 503, "lookup email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, 500, "hash password")
	}

	m := &Member{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Enabled:      true,
		Roles:        RoleUser,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		// The unique index is the backstop for registration races the
		// pre-check cannot see.
		return nil, errors.Conflict("email already registered").WithCause(err)
	}

	log.Info().Str("member", m.ID).Msg("member registered")
	return m, nil
}

// Get returns one member by id.
func (s *Service) Get(ctx context.Context, id string) (*Member, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.NotFound("member not found")
		}
		return nil, errors.Wrap(err, 503, "find member")
	}
	return m, nil
}

// List returns all members ordered by name.
func (s *Service) List(ctx context.Context) ([]*Member, error) {
	members, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, 503, "list members")
	}
	return members, nil
}

// Update modifies the profile fields.
func (s *Service) Update(ctx context.Context, id string, in *UpdateInput) (*Member, error) {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, errors.BadRequest("%v", err)
	}

	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.Name = in.Name
	m.Phone = in.Phone
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, errors.Wrap(err, 503, "update member")
	}
	return m, nil
}

// Delete removes a member.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errors.NotFound("member not found")
		}
		return errors.Wrap(err, 503, "delete member")
	}
	return nil
}

// SetStatus enables/disables and locks/unlocks an account. It does not
// revoke live sessions; the caller decides whether to follow up with a
// revocation sweep.
func (s *Service) SetStatus(ctx context.Context, id string, enabled, locked bool) (*Member, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.Enabled = enabled
	m.Locked = locked
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, errors.Wrap(err, 503, "update member")
	}

	log.Info().Str("member", m.ID).Bool("enabled", enabled).Bool("locked", locked).Msg("member status changed")
	return m, nil
}

// ChangePassword verifies the current password and stores the new one.
// The caller is responsible for revoking the member's sessions after a
// successful change.
func (s *Service) ChangePassword(ctx context.Context, id string, in *ChangePasswordInput) error {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return errors.BadRequest("%v", err)
	}

	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(in.Current)); err != nil {
		return errors.Unauthorized("current password does not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.New), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, 500, "hash password")
	}

	m.PasswordHash = string(hash)
	if err := s.repo.Update(ctx, m); err != nil {
		return errors.Wrap(err, 503, "update member")
	}
	return nil
}

// VerifyCredentials implements auth.IdentityProvider. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*auth.Principal, error) {
	m, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Unauthorized("invalid email or password")
		}
		return nil, errors.Wrap(err, 503, "find member")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Unauthorized("invalid email or password")
	}

	return s.principal(m), nil
}

// PrincipalByID implements auth.IdentityProvider.
func (s *Service) PrincipalByID(ctx context.Context, id string) (*auth.Principal, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Unauthorized("unknown subject")
		}
		return nil, errors.Wrap(err, 503, "find member")
	}
	return s.principal(m), nil
}

func (s *Service) principal(m *Member) *auth.Principal {
	return &auth.Principal{
		ID:          m.ID,
		Enabled:     m.Enabled,
		Locked:      m.Locked,
		Authorities: m.Authorities(),
	}
}

// interface compliance
var _ auth.IdentityProvider = (*Service)(nil)
