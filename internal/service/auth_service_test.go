package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type mockAuthRepo struct {
	users   map[string]*models.User
	byEmail map[string]*models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
	audits  []models.AuditLog
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{
		users:   map[string]*models.User{},
		byEmail: map[string]*models.User{},
		tokens:  map[string]*models.RefreshToken{},
	}
	for _, u := range users {
		repo.users[u.ID] = u
		repo.byEmail[u.Email] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func boundUser(t *testing.T) *models.User {
	return &models.User{
		ID:           "u1",
		Email:        "admin@school.test",
		PasswordHash: hashFor(t, "secret"),
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		Active:       true,
		TenantID:     "t1",
		TenantCode:   "SCH001",
		SessionID:    "s1",
		SessionYear:  2024,
	}
}

func authConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "sims-api-test",
	}
}

func TestAuthServiceLoginIssuesTenantBoundToken(t *testing.T) {
	repo := newMockAuthRepo(boundUser(t))
	svc := NewAuthService(repo, nil, nil, authConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.test", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "SCH001", resp.User.TenantCode)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, 2024, claims.SessionYear)

	require.NotEmpty(t, repo.audits)
	assert.Equal(t, "LOGIN", repo.audits[0].Action)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(boundUser(t)), nil, nil, authConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.test", Password: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, nil, authConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@school.test", Password: "secret"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginRejectsBrokenTenantBinding(t *testing.T) {
	for _, mutate := range []func(*models.User){
		func(u *models.User) { u.TenantID = "" },
		func(u *models.User) { u.TenantCode = "" },
		func(u *models.User) { u.TenantCode = "0" },
		func(u *models.User) { u.SessionID = "" },
	} {
		user := boundUser(t)
		mutate(user)
		svc := NewAuthService(newMockAuthRepo(user), nil, nil, authConfig())

		_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "secret"})
		assert.ErrorIs(t, err, appErrors.ErrTenantScope)
	}
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo(boundUser(t))
	svc := NewAuthService(repo, nil, nil, authConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.test", Password: "secret"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The old token was revoked on use.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceLogoutRequiresOwnership(t *testing.T) {
	repo := newMockAuthRepo(boundUser(t))
	svc := NewAuthService(repo, nil, nil, authConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.test", Password: "secret"})
	require.NoError(t, err)

	otherScope := serviceScope()
	otherScope.UserID = "intruder"
	err = svc.Logout(context.Background(), login.RefreshToken, otherScope)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, serviceScope()))
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newMockAuthRepo(), nil, nil, authConfig())

	_, err := svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
