package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type JWTClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     types.Role

	// Student fields
	StudentNumber string
	Major         string
	Year          int

	// Professor fields
	ProfessorNumber string
	Department      string
	Title           string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*types.User, string, error)
	Login(ctx context.Context, email, password string) (*types.User, string, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	ParseToken(tokenString string) (Caller, error)
	AccessTTL() time.Duration
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	return &authService{
		db:           db,
		log:          baseLog.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) Register(ctx context.Context, input RegisterInput) (*types.User, string, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)

	if input.Email == "" {
		return nil, "", apierr.Validation("email_required", fmt.Errorf("email is required"))
	}
	if input.Password == "" {
		return nil, "", apierr.Validation("password_required", fmt.Errorf("password is required"))
	}
	if input.Name == "" {
		return nil, "", apierr.Validation("name_required", fmt.Errorf("name is required"))
	}
	if !input.Role.Valid() {
		return nil, "", apierr.Validation("invalid_role", fmt.Errorf("role must be student, professor or admin"))
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, input.Email)
	if err != nil {
		return nil, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, "", apierr.Conflict("email_taken", fmt.Errorf("email already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: string(hash),
		Name:         input.Name,
		Role:         input.Role,
	}
	switch input.Role {
	case types.RoleStudent:
		user.StudentProfile = &types.StudentProfile{
			ID:            uuid.New(),
			UserID:        user.ID,
			StudentNumber: strings.TrimSpace(input.StudentNumber),
			Major:         strings.TrimSpace(input.Major),
			Year:          input.Year,
		}
	case types.RoleProfessor:
		user.ProfessorProfile = &types.ProfessorProfile{
			ID:              uuid.New(),
			UserID:          user.ID,
			ProfessorNumber: strings.TrimSpace(input.ProfessorNumber),
			Department:      strings.TrimSpace(input.Department),
			Title:           strings.TrimSpace(input.Title),
		}
	}

	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return as.userRepo.Create(ctx, tx, user)
	})
	if err != nil {
		return nil, "", apierr.FromDB(err, "email_taken")
	}

	token, err := as.generateAccessToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("generate access token: %w", err)
	}
	return user, token, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", apierr.Validation("credentials_required", fmt.Errorf("email and password required"))
	}

	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, "", apierr.Unauthorized("invalid_credentials", fmt.Errorf("invalid email or password"))
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", apierr.Unauthorized("invalid_credentials", fmt.Errorf("invalid email or password"))
	}

	token, err := as.generateAccessToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("generate access token: %w", err)
	}
	return user, token, nil
}

func (as *authService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apierr.Validation("passwords_required", fmt.Errorf("current and new password required"))
	}
	user, err := as.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return apierr.NotFound("user_not_found", fmt.Errorf("user not found"))
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return apierr.Unauthorized("invalid_credentials", fmt.Errorf("current password is incorrect"))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return as.userRepo.UpdatePasswordHash(ctx, nil, userID, string(hash))
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: string(user.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) ParseToken(tokenString string) (Caller, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return Caller{}, apierr.Unauthorized("invalid_token", fmt.Errorf("parse token: %w", err))
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return Caller{}, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid or expired token"))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Caller{}, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid user id in token: %w", err))
	}
	role := types.Role(claims.Role)
	if !role.Valid() {
		return Caller{}, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid role in token"))
	}
	return Caller{ID: userID, Role: role}, nil
}

func (as *authService) AccessTTL() time.Duration {
	return as.accessTTL
}
