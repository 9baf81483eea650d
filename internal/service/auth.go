// auth.go — сервис регистрации и входа пользователей.
// Пароли хэшируются bcrypt, токены — самоподписанные JWT (HS256).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
	"github.com/ArokiaMartinN/agriqcert/internal/domain/rbac"
	"github.com/ArokiaMartinN/agriqcert/internal/repository"
)

// minPasswordLen — минимальная длина пароля.
const minPasswordLen = 8

// AuthService — сервис аутентификации.
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	jwtTTL    time.Duration
	logger    *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtTTL time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		logger:    logger.With(slog.String("component", "auth_service")),
	}
}

// RegisterInput — входные данные регистрации.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Role         string
	Organization string
}

// Register создаёт пользователя и возвращает его вместе с токеном.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	if in.Name == "" {
		return nil, "", fmt.Errorf("%w: name обязателен", ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, "", fmt.Errorf("%w: некорректный email %q", ErrValidation, in.Email)
	}
	if len(in.Password) < minPasswordLen {
		return nil, "", fmt.Errorf("%w: пароль короче %d символов", ErrValidation, minPasswordLen)
	}
	if !rbac.IsValidRole(in.Role) {
		return nil, "", fmt.Errorf("%w: недопустимая роль %q", ErrValidation, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("хэширование пароля: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Organization: in.Organization,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, "", fmt.Errorf("%w: email %q уже зарегистрирован", ErrValidation, in.Email)
		}
		return nil, "", fmt.Errorf("сохранение пользователя: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("Пользователь зарегистрирован",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return user, token, nil
}

// Login проверяет учётные данные и возвращает пользователя с токеном.
// Неверный email и неверный пароль неразличимы для клиента.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: неверный email или пароль", ErrAuth)
		}
		return nil, "", fmt.Errorf("поиск пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("%w: неверный email или пароль", ErrAuth)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("Пользователь вошёл в систему",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return user, token, nil
}

// issueToken выпускает JWT с claims sub, role, name, email.
func (s *AuthService) issueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"role":  user.Role,
		"name":  user.Name,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.jwtTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("подпись токена: %w", err)
	}
	return signed, nil
}
