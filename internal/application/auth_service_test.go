package application_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/m0hi1/voyageiq/config"
	"github.com/m0hi1/voyageiq/internal/application"
	"github.com/m0hi1/voyageiq/internal/domain/entity"
	"github.com/m0hi1/voyageiq/internal/domain/repository"
	"github.com/m0hi1/voyageiq/pkg/helpers"
)

// memoryUserRepo is an in-memory UserRepository with the same uniqueness
// and CAS semantics as the postgres implementation.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*entity.User{}}
}

func clone(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.GoogleID != nil {
		g := *u.GoogleID
		c.GoogleID = &g
	}
	if u.ResetTokenExpiry != nil {
		e := *u.ResetTokenExpiry
		c.ResetTokenExpiry = &e
	}
	if u.LastLoginAt != nil {
		l := *u.LastLoginAt
		c.LastLoginAt = &l
	}
	return &c
}

func (m *memoryUserRepo) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.users {
		if ex.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
		if ex.Username == u.Username {
			return repository.ErrDuplicateUsername
		}
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = clone(u)
	return nil
}

func (m *memoryUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return clone(u), nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUserRepo) GetByGoogleID(_ context.Context, googleID string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUserRepo) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = clone(u)
	return nil
}

func (m *memoryUserRepo) LinkGoogleID(_ context.Context, userID, googleID, avatarURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.GoogleID != nil {
		return false, nil
	}
	g := googleID
	u.GoogleID = &g
	u.AuthProvider = entity.ProviderGoogle
	if u.AvatarURL == "" {
		u.AvatarURL = avatarURL
	}
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memoryUserRepo) SetResetToken(_ context.Context, userID, tokenHash string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpiry = &expiry
	return nil
}

func (m *memoryUserRepo) GetByResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetTokenHash == tokenHash && tokenHash != "" && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUserRepo) UpdatePasswordAndClearReset(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenExpiry = nil
	return nil
}

func (m *memoryUserRepo) RecordLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

// expireResetToken force-expires any outstanding token, for expiry tests.
func (m *memoryUserRepo) expireResetToken(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	past := time.Now().UTC().Add(-time.Minute)
	m.users[userID].ResetTokenExpiry = &past
}

var _ repository.UserRepository = (*memoryUserRepo)(nil)

func newTestService(repo repository.UserRepository) *application.AuthService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		ResetTokenTTL:    10 * time.Minute,
		ResetPasswordURL: "http://localhost:5173/reset-password",
	}
	// bcrypt MinCost keeps the suite fast
	return application.NewAuthService(repo, helpers.NewHasher(4), helpers.NewJWTManager("test-secret", time.Hour), nil, logger, cfg)
}

func TestRegister_StoresHashedPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)
	require.Equal(t, entity.ProviderLocal, u.AuthProvider)
	require.Equal(t, entity.RoleUser, u.Role)
	require.NotEqual(t, "Secret123", u.PasswordHash)

	// same password, different salt, different hash
	u2, err := svc.Register(ctx, "bob", "b@x.com", "Secret123")
	require.NoError(t, err)
	require.NotEqual(t, u.PasswordHash, u2.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(newMemoryUserRepo())

	_, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice2", "a@x.com", "Secret123")
	require.ErrorIs(t, err, application.ErrEmailTaken)
	_, err = svc.Register(ctx, "alice", "other@x.com", "Secret123")
	require.ErrorIs(t, err, application.ErrUsernameTaken)
}

func TestRegister_NormalizesEmailCase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(newMemoryUserRepo())

	_, err := svc.Register(ctx, "alice", "Alice@X.Com", "Secret123")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "alice@x.com", "Secret123")
	require.NoError(t, err)
	require.Equal(t, "alice@x.com", u.Email)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(newMemoryUserRepo())
	_, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)

	t.Run("success records last login", func(t *testing.T) {
		u, err := svc.Login(ctx, "a@x.com", "Secret123")
		require.NoError(t, err)
		require.NotNil(t, u.LastLoginAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "a@x.com", "almost-Secret123")
		require.ErrorIs(t, err, application.ErrIncorrectPassword)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost@x.com", "whatever")
		require.ErrorIs(t, err, application.ErrUserNotFound)
	})
}

func TestLogin_GoogleOnlyAccountRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(newMemoryUserRepo())

	_, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "g@x.com", Name: "Gigi", GoogleID: "g1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "g@x.com", "anything")
	require.ErrorIs(t, err, application.ErrNoLocalPassword)
}

func TestGoogle_CreatesUserWithGeneratedUsername(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(newMemoryUserRepo())

	u, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{
		Email:    "New.Traveler@X.com",
		Name:     "New Traveler",
		GoogleID: "g1",
		PhotoURL: "http://p/avatar.png",
	})
	require.NoError(t, err)
	require.Equal(t, "newtraveler", u.Username)
	require.Equal(t, "new.traveler@x.com", u.Email)
	require.Equal(t, entity.ProviderGoogle, u.AuthProvider)
	require.NotNil(t, u.GoogleID)
	require.Equal(t, "g1", *u.GoogleID)
	require.Equal(t, "http://p/avatar.png", u.AvatarURL)
	require.False(t, u.HasPassword())
}

func TestGoogle_UsernameCollisionRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(newMemoryUserRepo())

	_, err := svc.Register(ctx, "newtraveler", "taken@x.com", "Secret123")
	require.NoError(t, err)

	u, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "nt@x.com", Name: "New Traveler", GoogleID: "g2"})
	require.NoError(t, err)
	require.NotEqual(t, "newtraveler", u.Username)
	require.Contains(t, u.Username, "newtraveler")
}

func TestGoogle_LinksLocalAccountPreservingPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(newMemoryUserRepo())

	local, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)

	linked, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g1", PhotoURL: "http://p"})
	require.NoError(t, err)
	require.NotNil(t, linked.GoogleID)
	require.Equal(t, "g1", *linked.GoogleID)
	require.Equal(t, entity.ProviderGoogle, linked.AuthProvider)
	require.Equal(t, local.PasswordHash, linked.PasswordHash)
	require.Equal(t, "http://p", linked.AvatarURL)

	// local password login still works after linking
	_, err = svc.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)
}

func TestGoogle_LinkKeepsExistingAvatar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)
	u.AvatarURL = "http://existing"
	require.NoError(t, repo.Update(context.Background(), u))

	linked, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g1", PhotoURL: "http://google"})
	require.NoError(t, err)
	require.Equal(t, "http://existing", linked.AvatarURL)
}

func TestGoogle_ConflictLeavesRecordUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g1"})
	require.NoError(t, err)
	before, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)

	_, err = svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g2"})
	require.ErrorIs(t, err, application.ErrGoogleConflict)

	after, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestGoogle_ChangedEmailResolvesBySubjectID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	first, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "old@x.com", GoogleID: "g1"})
	require.NoError(t, err)

	// same subject, new address: no second account appears
	again, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "new@x.com", GoogleID: "g1"})
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Len(t, repo.users, 1)
}

func TestGoogle_IDBoundElsewhereCannotLink(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	_, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g1"})
	require.NoError(t, err)
	local, err := svc.Register(ctx, "bob", "b@x.com", "Secret123")
	require.NoError(t, err)

	// g1 already belongs to the first account; bob's email must not
	// steal it
	_, err = svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "b@x.com", GoogleID: "g1"})
	require.ErrorIs(t, err, application.ErrGoogleConflict)

	after, err := repo.GetByID(ctx, local.ID)
	require.NoError(t, err)
	require.Nil(t, after.GoogleID)
}

func TestGoogle_RepeatSignInMatchingID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(newMemoryUserRepo())

	first, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g1"})
	require.NoError(t, err)
	again, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g1"})
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
}

func TestGoogle_LostLinkRaceSameIDSucceeds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)

	// another request links g1 between our read and our CAS
	ok, err := repo.LinkGoogleID(ctx, u.ID, "g1", "")
	require.NoError(t, err)
	require.True(t, ok)

	res, err := svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g1"})
	require.NoError(t, err)
	require.Equal(t, "g1", *res.GoogleID)

	_, err = svc.LoginWithGoogle(ctx, application.GoogleProfile{Email: "a@x.com", GoogleID: "g2"})
	require.ErrorIs(t, err, application.ErrGoogleConflict)
}

func TestForgotPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.ForgotPassword(ctx, "ghost@x.com")
		require.ErrorIs(t, err, application.ErrUserNotFound)
	})

	t.Run("stores only the token hash", func(t *testing.T) {
		raw, err := svc.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)
		require.NotEmpty(t, raw)

		stored, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotEmpty(t, stored.ResetTokenHash)
		require.NotEqual(t, raw, stored.ResetTokenHash)
		require.NotNil(t, stored.ResetTokenExpiry)
	})

	t.Run("new request supersedes the previous token", func(t *testing.T) {
		first, err := svc.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)
		_, err = svc.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)

		_, err = svc.ResetPassword(ctx, first, "NewPass1")
		require.ErrorIs(t, err, application.ErrResetTokenInvalid)
	})
}

func TestResetPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)

	raw, err := svc.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)

	reset, err := svc.ResetPassword(ctx, raw, "NewPass1")
	require.NoError(t, err)
	require.Equal(t, u.ID, reset.ID)
	require.Empty(t, reset.ResetTokenHash)
	require.Nil(t, reset.ResetTokenExpiry)

	// old password gone, new password works
	_, err = svc.Login(ctx, "a@x.com", "Secret123")
	require.ErrorIs(t, err, application.ErrIncorrectPassword)
	_, err = svc.Login(ctx, "a@x.com", "NewPass1")
	require.NoError(t, err)

	// single use: the same raw token cannot be redeemed twice
	_, err = svc.ResetPassword(ctx, raw, "AnotherPass1")
	require.ErrorIs(t, err, application.ErrResetTokenInvalid)
}

func TestResetPassword_ExpiredTokenIndistinguishableFromUnknown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.Register(ctx, "alice", "a@x.com", "Secret123")
	require.NoError(t, err)

	raw, err := svc.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	repo.expireResetToken(u.ID)

	_, expiredErr := svc.ResetPassword(ctx, raw, "NewPass1")
	_, unknownErr := svc.ResetPassword(ctx, "no-such-token", "NewPass1")
	require.ErrorIs(t, expiredErr, application.ErrResetTokenInvalid)
	require.Equal(t, unknownErr, expiredErr)
}
