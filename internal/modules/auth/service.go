package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/roles"
	pkgjwt "github.com/inkpress/core/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidCredentials covers both unknown usernames and bad passwords,
	// so the response does not leak which one it was.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password, ip string) (string, *models.UserModel, error) {
	var user models.UserModel
	err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	_ = s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	}).Error

	token, err := pkgjwt.Sign(user.ID, tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, &user, nil
}

// CreateUserDTO registers an account with its role memberships.
type CreateUserDTO struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Name     string   `json:"name"`
	Mail     string   `json:"mail"`
	Roles    []string `json:"roles"`
	IsAdmin  bool     `json:"is_admin"`
}

// CreateUser hashes the password and stores the account. Unknown role names
// are rejected rather than silently dropped.
func (s *Service) CreateUser(ctx context.Context, dto *CreateUserDTO) (*models.UserModel, error) {
	for _, name := range dto.Roles {
		if !roles.Known(roles.Role(name)) {
			return nil, fmt.Errorf("unknown role %q", name)
		}
	}

	var count int64
	s.db.WithContext(ctx).Model(&models.UserModel{}).Where("username = ?", dto.Username).Count(&count)
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.UserModel{
		Username: dto.Username,
		Name:     dto.Name,
		Mail:     dto.Mail,
		Password: string(hash),
		Roles:    dto.Roles,
		IsAdmin:  dto.IsAdmin,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser loads one account.
func (s *Service) GetUser(ctx context.Context, id string) (*models.UserModel, error) {
	var user models.UserModel
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
