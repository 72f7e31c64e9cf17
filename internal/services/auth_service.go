package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/tokens"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// passwordCost is lowered in tests.
var passwordCost = bcrypt.DefaultCost

// AuthService handles authentication related business logic.
type AuthService struct {
	store  *repository.Store
	issuer *tokens.Issuer
}

// NewAuthService creates a new AuthService.
func NewAuthService(store *repository.Store, issuer *tokens.Issuer) *AuthService {
	return &AuthService{
		store:  store,
		issuer: issuer,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Signup creates an active user with the base role and no team.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := normalizeEmail(input.Email)
	if firstName == "" || lastName == "" {
		return nil, validation("first and last name are required")
	}
	if email == "" {
		return nil, validation("email is required")
	}
	if err := utils.CheckPasswordStrength(input.Password); err != nil {
		return nil, validation("%s", err.Error())
	}

	if _, err := s.store.Users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Role:         models.RoleUser,
	}

	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, *tokens.Pair, error) {
	user, err := s.store.Users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountInactive
	}

	pair, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}

	if _, err := s.ResolvePrincipal(ctx, claims.UserID); err != nil {
		return "", err
	}

	return s.issuer.IssueAccess(claims.UserID)
}

// ResolveToken turns a bearer access token into the current principal.
func (s *AuthService) ResolveToken(ctx context.Context, accessToken string) (access.Principal, error) {
	claims, err := s.issuer.ParseAccess(accessToken)
	if err != nil {
		return access.Principal{}, ErrInvalidToken
	}
	return s.ResolvePrincipal(ctx, claims.UserID)
}

// ResolvePrincipal loads the user's current role and team. Missing or
// inactive users are unauthenticated.
func (s *AuthService) ResolvePrincipal(ctx context.Context, userID uint64) (access.Principal, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return access.Principal{}, ErrUnauthenticated
		}
		return access.Principal{}, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive {
		return access.Principal{}, ErrAccountInactive
	}

	return access.PrincipalOf(user), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
