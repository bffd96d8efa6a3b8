package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/m0hi1/voyageiq/config"
	"github.com/m0hi1/voyageiq/internal/domain/entity"
	"github.com/m0hi1/voyageiq/internal/domain/repository"
	"github.com/m0hi1/voyageiq/pkg/helpers"
	"github.com/m0hi1/voyageiq/pkg/mailer"
	tpl "github.com/m0hi1/voyageiq/pkg/mailer/templates"
)

var (
	ErrEmailTaken        = errors.New("email already registered")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrUserNotFound      = errors.New("user not found")
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrNoLocalPassword is the "use the other method" rejection: the
	// account was established through Google and has no password to check.
	ErrNoLocalPassword = errors.New("account has no password; sign in with google")
	// ErrGoogleConflict means the email is already linked to a different
	// Google identity. The stored record is never mutated in this case.
	ErrGoogleConflict = errors.New("email already linked to a different google account")
	// ErrResetTokenInvalid covers both unknown and expired reset tokens;
	// the two are deliberately indistinguishable to the caller.
	ErrResetTokenInvalid = errors.New("invalid or expired token")
)

const maxUsernameAttempts = 5

// GoogleProfile is the identity asserted by Google sign-in as forwarded by
// the client: email, display name, stable subject id, avatar.
type GoogleProfile struct {
	Email    string
	Name     string
	GoogleID string
	PhotoURL string
}

// AuthService resolves identities across the two credential sources, runs
// the password-reset handshake, and mints sessions.
type AuthService struct {
	Repo   repository.UserRepository
	Hasher *helpers.Hasher
	JWT    *helpers.JWTManager
	Pub    *helpers.RabbitPublisher
	Logger *logrus.Logger
	Cfg    *config.Config
}

func NewAuthService(repo repository.UserRepository, hasher *helpers.Hasher, jwt *helpers.JWTManager, pub *helpers.RabbitPublisher, logger *logrus.Logger, cfg *config.Config) *AuthService {
	return &AuthService{Repo: repo, Hasher: hasher, JWT: jwt, Pub: pub, Logger: logger, Cfg: cfg}
}

// Register creates a local-password account.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		ID:           uuid.NewString(),
		Username:     strings.ToLower(strings.TrimSpace(username)),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		AuthProvider: entity.ProviderLocal,
		Role:         entity.RoleUser,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Login authenticates local credentials. Unknown email, missing local
// password, and wrong password are distinct failures (404 / 400 / 401).
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !u.HasPassword() {
		return nil, ErrNoLocalPassword
	}
	if !s.Hasher.Check(u.PasswordHash, password) {
		return nil, ErrIncorrectPassword
	}
	s.recordLogin(ctx, u)
	return u, nil
}

// LoginWithGoogle resolves an externally-asserted identity: sign in by
// subject id or create on unknown email, link on an unlinked local
// account, reject when the id is bound elsewhere or mismatches, plain
// sign-in when the id matches.
func (s *AuthService) LoginWithGoogle(ctx context.Context, p GoogleProfile) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// The subject id outlives the Google account's email address. An
		// id match on an unknown email is the same person signing in
		// after changing their email, not a new account.
		if byID, gerr := s.Repo.GetByGoogleID(ctx, p.GoogleID); gerr == nil {
			s.recordLogin(ctx, byID)
			return byID, nil
		} else if !errors.Is(gerr, repository.ErrNotFound) {
			return nil, gerr
		}
		return s.createGoogleUser(ctx, email, p)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case u.GoogleID == nil:
		// A google id already bound to some other account must not be
		// re-linked here; without this check the conditional update below
		// would trip the google_id unique constraint instead.
		if other, gerr := s.Repo.GetByGoogleID(ctx, p.GoogleID); gerr == nil && other.ID != u.ID {
			return nil, ErrGoogleConflict
		} else if gerr != nil && !errors.Is(gerr, repository.ErrNotFound) {
			return nil, gerr
		}
		// Conditional update rather than read-then-write: two concurrent
		// sign-ins for the same unlinked email race here, and only one
		// may set the linking field.
		linked, lerr := s.Repo.LinkGoogleID(ctx, u.ID, p.GoogleID, p.PhotoURL)
		if lerr != nil {
			return nil, lerr
		}
		u, lerr = s.Repo.GetByID(ctx, u.ID)
		if lerr != nil {
			return nil, lerr
		}
		if !linked {
			// Lost the race: someone linked first. Accept only if they
			// linked the same identity we were asked to link.
			if u.GoogleID == nil || *u.GoogleID != p.GoogleID {
				return nil, ErrGoogleConflict
			}
		}
	case *u.GoogleID != p.GoogleID:
		return nil, ErrGoogleConflict
	}

	s.recordLogin(ctx, u)
	return u, nil
}

func (s *AuthService) createGoogleUser(ctx context.Context, email string, p GoogleProfile) (*entity.User, error) {
	googleID := p.GoogleID
	base := usernameBase(p.Name, email)
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username := base
		if attempt > 0 {
			suffix, err := randomSuffix()
			if err != nil {
				return nil, err
			}
			username = base + suffix
		}
		u := &entity.User{
			ID:           uuid.NewString(),
			Username:     username,
			Email:        email,
			GoogleID:     &googleID,
			AuthProvider: entity.ProviderGoogle,
			Role:         entity.RoleUser,
			AvatarURL:    p.PhotoURL,
		}
		err := s.Repo.Create(ctx, u)
		if err == nil {
			s.recordLogin(ctx, u)
			return u, nil
		}
		if errors.Is(err, repository.ErrDuplicateUsername) {
			continue // new disambiguator, try again
		}
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// A concurrent sign-in created the account between our lookup
			// and insert; resolve against the now-existing record.
			return s.LoginWithGoogle(ctx, p)
		}
		return nil, err
	}
	return nil, fmt.Errorf("could not generate a unique username for %s", email)
}

// IssueSession mints the signed session token for a resolved user. The
// handler feeds the one token to both transports (cookie and body).
func (s *AuthService) IssueSession(u *entity.User) (string, time.Time, error) {
	token, exp, err := s.JWT.Mint(u.ID, u.Role)
	if err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("mint session token failed")
	}
	return token, exp, err
}

// ForgotPassword starts the reset handshake: stores only the token's hash
// plus a short expiry on the user (superseding any outstanding token) and
// enqueues the raw token for out-of-band delivery. The raw token is
// returned for the mail job only and must never reach the HTTP response.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	raw, err := generateResetToken()
	if err != nil {
		return "", err
	}
	expiry := time.Now().UTC().Add(s.Cfg.ResetTokenTTL)
	if err := s.Repo.SetResetToken(ctx, u.ID, hashResetToken(raw), expiry); err != nil {
		return "", err
	}

	if s.Pub != nil && s.Cfg.MailSendEnabled {
		job := mailer.EmailJob{
			To:       u.Email,
			Template: tpl.ResetPassword,
			Data: map[string]any{
				"Name":          u.Username,
				"ResetURL":      s.Cfg.ResetPasswordURL + "/" + raw,
				"ExpiresInText": formatTTL(s.Cfg.ResetTokenTTL),
			},
		}
		if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("enqueue reset email failed")
		}
	}
	return raw, nil
}

// ResetPassword redeems an outstanding reset token. Unknown and expired
// tokens fail identically; success replaces the password, clears both
// reset fields in one write, and returns the user for immediate session
// issuance.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) (*entity.User, error) {
	u, err := s.Repo.GetByResetTokenHash(ctx, hashResetToken(rawToken), time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.UpdatePasswordAndClearReset(ctx, u.ID, hash); err != nil {
		return nil, err
	}
	u, err = s.Repo.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.recordLogin(ctx, u)
	return u, nil
}

// recordLogin is deliberate bookkeeping at the end of each successful login
// path; failures are logged, not surfaced.
func (s *AuthService) recordLogin(ctx context.Context, u *entity.User) {
	now := time.Now().UTC()
	if err := s.Repo.RecordLogin(ctx, u.ID, now); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("record login failed")
	}
	u.LastLoginAt = &now
}

// usernameBase derives a deterministic slug from the display name, or the
// email local part when the name yields nothing usable.
func usernameBase(name, email string) string {
	slug := slugify(name)
	if slug == "" {
		local, _, _ := strings.Cut(email, "@")
		slug = slugify(local)
	}
	if slug == "" {
		slug = "traveler"
	}
	if len(slug) > 24 {
		slug = slug[:24]
	}
	return slug
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func randomSuffix() (string, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashResetToken is the one-way digest stored instead of the raw token.
func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func formatTTL(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}
