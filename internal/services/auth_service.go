package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/logger"
	"github.com/esilogis/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Claims is the bearer token payload.
type Claims struct {
	ID    uint        `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() models.Actor {
	return models.Actor{ID: c.ID, Email: c.Email, Role: c.Role}
}

type AuthService struct {
	db        *gorm.DB
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewAuthService(db *gorm.DB, secret string, expiresIn time.Duration) *AuthService {
	return &AuthService{
		db:        db,
		secret:    []byte(secret),
		expiresIn: expiresIn,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      models.Person `json:"user"`
}

// Register creates a USER account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	person, err := createPerson(ctx, s.db, CreatePersonInput{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      string(models.RoleUser),
	})
	if err != nil {
		return nil, err
	}
	return s.issue(person)
}

// Login checks credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var person models.Person
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&person).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, apperror.Internal("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(person.Password), []byte(password)); err != nil {
		logger.WithUser(person.ID).Warn("Failed login attempt")
		return nil, apperror.Unauthorized("invalid credentials")
	}

	logger.WithUser(person.ID).Info("User logged in")
	return s.issue(&person)
}

func (s *AuthService) issue(person *models.Person) (*AuthResult, error) {
	token, expiresAt, err := s.GenerateToken(person)
	if err != nil {
		return nil, apperror.Internal("failed to generate token", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: *person}, nil
}

// GenerateToken signs an HS256 token carrying id, email and role.
func (s *AuthService) GenerateToken(person *models.Person) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiresIn)
	claims := Claims{
		ID:    person.ID,
		Email: person.Email,
		Role:  person.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, expiresAt, err
}

// ParseToken verifies signature and expiry and returns the claims.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Unauthorized("token expired")
		}
		return nil, apperror.Unauthorized("invalid token")
	}
	if !token.Valid {
		return nil, apperror.Unauthorized("invalid token")
	}
	if _, ok := models.ParseRole(string(claims.Role)); !ok || claims.ID == 0 {
		return nil, apperror.Unauthorized("invalid token claims")
	}
	return claims, nil
}

// Me returns the person behind a token.
func (s *AuthService) Me(ctx context.Context, id uint) (*models.Person, error) {
	var person models.Person
	if err := s.db.WithContext(ctx).First(&person, id).Error; err != nil {
		return nil, notFoundOr(err, "user %d not found", id)
	}
	return &person, nil
}
