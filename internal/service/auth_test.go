package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "ehrledger/internal/db"
	"ehrledger/internal/db/repository"
	"ehrledger/internal/domain"
)

var testJWTSecret = []byte("test-secret")

func setupAuth(t *testing.T) *AuthService {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewAuthService(repository.NewUserRepo(writeDB), testJWTSecret, time.Hour)
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	u, err := auth.Register(ctx, "dr_chen", "s3cret", "doctor")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, u.Role)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	caller, token, err := auth.Login(ctx, "dr_chen", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.Caller{ID: "dr_chen", Role: domain.RoleDoctor}, caller)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return testJWTSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "dr_chen", claims["sub"])
	assert.Equal(t, "doctor", claims["role"])
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "dr_chen", "s3cret", "doctor")
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "dr_chen", "wrong")
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestAuth_LoginUnknownUserIndistinguishable(t *testing.T) {
	auth := setupAuth(t)

	_, _, err := auth.Login(context.Background(), "nobody", "whatever")
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "invalid credentials", denied.Message)
}

func TestAuth_RegisterValidation(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "", "pw", "doctor")
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = auth.Register(ctx, "u", "", "doctor")
	assert.ErrorAs(t, err, &validation)

	_, err = auth.Register(ctx, "u", "pw", "superuser")
	assert.ErrorAs(t, err, &validation)
}

func TestAuth_RegisterDuplicateIsConflict(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "dr_chen", "s3cret", "doctor")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "dr_chen", "other", "auditor")
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}
