package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/internal/users"
	pkgAuth "github.com/homease/homease-backend/pkg/auth"
	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "homease",
	ExpirationMinutes: 30,
}

type stubUserRepo struct {
	data      map[string]*models.User
	created   *models.User
	createErr error
	lastLogin *time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{data: map[string]*models.User{}}
}

func (s *stubUserRepo) CreateTx(tx *gorm.DB, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        dto.Email,
		PasswordHash: dto.PasswordHash,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		Phone:        dto.Phone,
		Role:         dto.Role,
		IsActive:     true,
	}
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.data {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubSessionManager struct {
	refreshToken string
	rotated      string
	revoked      []string
	rotateErr    error
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	s.rotated = oldAccessID
	return "new-access-id", "rotated-refresh-token", nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubRolePublisher struct {
	payloads []any
	err      error
}

func (s *stubRolePublisher) PublishJSON(ctx context.Context, payload any, attrs map[string]string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.payloads = append(s.payloads, payload)
	return "msg-1", nil
}

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r *sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	schema := `
CREATE TABLE IF NOT EXISTS pending_role_assignments (
  user_id TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  created_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

type authTestSetup struct {
	service   Service
	userRepo  *stubUserRepo
	sessions  *stubSessionManager
	publisher *stubRolePublisher
	db        *gorm.DB
}

func newAuthTestSetup(t *testing.T) *authTestSetup {
	t.Helper()
	db := setupAuthTestDB(t)
	userRepo := newStubUserRepo()
	sessions := &stubSessionManager{refreshToken: "refresh-token"}
	publisher := &stubRolePublisher{}
	svc, err := NewService(ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		TxRunner:       &sqliteTxRunner{db: db},
		RolePublisher:  publisher,
		PasswordCfg:    config.PasswordConfig{},
		JWTConfig:      testJWTConfig,
		Logger:         logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return &authTestSetup{
		service:   svc,
		userRepo:  userRepo,
		sessions:  sessions,
		publisher: publisher,
		db:        db,
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func sampleRegisterRequest(email string) RegisterRequest {
	return RegisterRequest{
		Email:     email,
		Password:  "correct horse battery",
		FirstName: "Jamie",
		LastName:  "Rivera",
		Role:      "contractor",
	}
}

func TestRegisterCreatesPendingRoleAndPublishes(t *testing.T) {
	setup := newAuthTestSetup(t)

	resp, err := setup.service.Register(context.Background(), sampleRegisterRequest("Jamie@Example.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair issued")
	}
	if setup.userRepo.created == nil {
		t.Fatal("expected user created")
	}
	if setup.userRepo.created.Email != "jamie@example.com" {
		t.Fatalf("expected normalized email, got %q", setup.userRepo.created.Email)
	}
	if setup.userRepo.created.Role != enums.RoleHomeowner {
		t.Fatalf("expected default role until the engine runs, got %s", setup.userRepo.created.Role)
	}

	var pending models.PendingRoleAssignment
	if err := setup.db.First(&pending, "user_id = ?", setup.userRepo.created.ID).Error; err != nil {
		t.Fatalf("load pending role: %v", err)
	}
	if pending.Role != "contractor" {
		t.Fatalf("expected contractor pending role, got %q", pending.Role)
	}
	if len(setup.publisher.payloads) != 1 {
		t.Fatalf("expected one role-pending publish, got %d", len(setup.publisher.payloads))
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	setup := newAuthTestSetup(t)

	if _, err := setup.service.Register(context.Background(), sampleRegisterRequest("jamie@example.com")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := setup.service.Register(context.Background(), sampleRegisterRequest("jamie@example.com")); err == nil {
		t.Fatal("expected conflict")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestRegisterSurvivesPublishFailure(t *testing.T) {
	setup := newAuthTestSetup(t)
	setup.publisher.err = context.DeadlineExceeded

	resp, err := setup.service.Register(context.Background(), sampleRegisterRequest("jamie@example.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected tokens despite publish failure")
	}
}

func TestLoginIssuesRoleClaim(t *testing.T) {
	setup := newAuthTestSetup(t)
	password := "contractor-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "pro@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.RoleContractor,
		IsActive:     true,
	}
	setup.userRepo.data[user.Email] = user

	resp, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    "Pro@Example.com",
		Password: password,
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.RoleContractor {
		t.Fatalf("expected contractor role claim, got %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected session id claim")
	}
	if setup.userRepo.lastLogin == nil {
		t.Fatal("expected last login recorded")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	setup := newAuthTestSetup(t)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "pro@example.com",
		PasswordHash: mustHashPassword(t, "right"),
		IsActive:     true,
	}
	setup.userRepo.data[user.Email] = user

	_, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: "wrong",
	})
	if err == nil {
		t.Fatal("expected unauthorized")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized code, got %v", err)
	}
	if typed.Error() != "invalid credentials" {
		t.Fatalf("expected opaque message, got %q", typed.Error())
	}
}

func TestLoginUnknownEmailSameMessage(t *testing.T) {
	setup := newAuthTestSetup(t)

	_, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	if err == nil {
		t.Fatal("expected unauthorized")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Error() != "invalid credentials" {
		t.Fatalf("expected opaque message, got %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	setup := newAuthTestSetup(t)
	password := "secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "pro@example.com",
		PasswordHash: mustHashPassword(t, password),
		IsActive:     false,
	}
	setup.userRepo.data[user.Email] = user

	if _, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	}); err == nil {
		t.Fatal("expected unauthorized for disabled account")
	}
}

func TestRefreshReloadsRoleFromUsersRow(t *testing.T) {
	setup := newAuthTestSetup(t)
	user := &models.User{
		ID:       uuid.New(),
		Email:    "pro@example.com",
		Role:     enums.RoleHomeowner,
		IsActive: true,
	}
	setup.userRepo.data[user.Email] = user

	accessToken, err := pkgAuth.MintAccessToken(testJWTConfig, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	// Role changed since the token was minted.
	user.Role = enums.RoleContractor

	pair, err := setup.service.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "refresh-token",
	})
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if setup.sessions.rotated != "session-1" {
		t.Fatalf("expected session-1 rotated, got %q", setup.sessions.rotated)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.Role != enums.RoleContractor {
		t.Fatalf("expected refreshed role claim, got %s", claims.Role)
	}
	if pair.RefreshToken != "rotated-refresh-token" {
		t.Fatalf("unexpected refresh token %q", pair.RefreshToken)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	setup := newAuthTestSetup(t)
	accessToken, err := pkgAuth.MintAccessToken(testJWTConfig, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleHomeowner,
		JTI:    "session-9",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	if err := setup.service.Logout(context.Background(), accessToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if len(setup.sessions.revoked) != 1 || setup.sessions.revoked[0] != "session-9" {
		t.Fatalf("expected session-9 revoked, got %v", setup.sessions.revoked)
	}
}

func TestLogoutRejectsGarbageToken(t *testing.T) {
	setup := newAuthTestSetup(t)

	if err := setup.service.Logout(context.Background(), "not-a-jwt"); err == nil {
		t.Fatal("expected unauthorized")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized code, got %v", err)
	}
}
