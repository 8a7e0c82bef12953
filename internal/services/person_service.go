package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/esilogis/backend/internal/apperror"
	"github.com/esilogis/backend/internal/logger"
	"github.com/esilogis/backend/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type PersonService struct {
	db *gorm.DB
}

func NewPersonService(db *gorm.DB) *PersonService {
	return &PersonService{db: db}
}

type CreatePersonInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Phone     *string
}

// CreatePerson lets an admin add an account with any role.
func (s *PersonService) CreatePerson(ctx context.Context, actor models.Actor, in CreatePersonInput) (*models.Person, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only an admin can create users")
	}
	return createPerson(ctx, s.db, in)
}

// ListPersons returns accounts, optionally restricted to one role.
func (s *PersonService) ListPersons(ctx context.Context, role string) ([]models.Person, error) {
	q := s.db.WithContext(ctx).Model(&models.Person{})
	if role != "" {
		r, ok := models.ParseRole(strings.ToUpper(role))
		if !ok {
			return nil, apperror.Validation("invalid role %q", role)
		}
		q = q.Where("role = ?", r)
	}

	persons := []models.Person{}
	if err := q.Order("last_name asc").Order("first_name asc").Find(&persons).Error; err != nil {
		return nil, apperror.Internal("failed to fetch users", err)
	}
	return persons, nil
}

func (s *PersonService) ListTechnicians(ctx context.Context) ([]models.Person, error) {
	return s.ListPersons(ctx, string(models.RoleTechnician))
}

func createPerson(ctx context.Context, db *gorm.DB, in CreatePersonInput) (*models.Person, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.Validation("invalid email %q", in.Email)
	}
	if len(in.Password) < 6 {
		return nil, apperror.Validation("password must be at least 6 characters")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, apperror.Validation("firstName and lastName are required")
	}
	role, ok := models.ParseRole(strings.ToUpper(in.Role))
	if !ok {
		return nil, apperror.Validation("invalid role %q", in.Role)
	}

	var existing models.Person
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperror.Conflict("user %s already exists", email)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to look up user", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	person := models.Person{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      role,
		Phone:     in.Phone,
	}
	if err := db.WithContext(ctx).Create(&person).Error; err != nil {
		logger.WithError(err, "person_service").Error("Failed to create user")
		return nil, apperror.Internal("failed to create user", err)
	}

	logger.WithUser(person.ID).WithFields(logrus.Fields{
		"role": person.Role,
	}).Info("User created")
	return &person, nil
}
