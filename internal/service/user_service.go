package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"relaychat/internal/domain"
)

const tokenTTL = 7 * 24 * time.Hour

// UserService provides account registration, login and token issuance.
type UserService struct {
	userRepo  IUserRepository
	jwtSecret string
}

// NewUserService creates a new UserService.
func NewUserService(userRepo IUserRepository, jwtSecret string) *UserService {
	return &UserService{userRepo: userRepo, jwtSecret: jwtSecret}
}

// Register creates a new account and returns it with a signed token.
func (s *UserService) Register(username, password string) (*domain.User, string, error) {
	if username == "" || password == "" {
		return nil, "", errors.New("username and password are required")
	}

	existing, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", errors.New("username is already taken")
	}

	user, err := domain.NewUser(username, password)
	if err != nil {
		return nil, "", err
	}
	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user and returns a signed token.
func (s *UserService) Login(username, password string) (*domain.User, string, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !user.CheckPassword(password) {
		return nil, "", errors.New("invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) issueToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"id":       user.ID.String(),
		"username": user.Username,
		"exp":      time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
