package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/farellandr/rollcall/internal/models"
	"github.com/farellandr/rollcall/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type SignUp struct {
	Name     string  `json:"name" validate:"required,min=2"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	City     *string `json:"city"`
}

// ProfileUpdate carries the editable profile fields. A nil field is left
// unchanged; an empty city or photo_url clears it.
type ProfileUpdate struct {
	Name     *string `json:"name" validate:"omitempty,min=2"`
	City     *string `json:"city"`
	PhotoURL *string `json:"photo_url"`
}

type UserService struct {
	store    *store.Store
	log      *zap.Logger
	validate *validator.Validate
	cost     int
}

func NewUserService(st *store.Store, log *zap.Logger) *UserService {
	return &UserService{
		store:    st,
		log:      log,
		validate: newValidator(),
		cost:     bcrypt.DefaultCost,
	}
}

// SignUp creates an account. Emails are stored lowercased.
func (s *UserService) SignUp(ctx context.Context, req SignUp) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		City:         req.City,
	}
	if err := s.store.DB(ctx).Create(&user).Error; err != nil {
		if store.IsDuplicate(err) {
			return nil, apperror.New(apperror.CodeConflict, "User already exists.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID.String()))
	return &user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := apperror.New(apperror.CodeUnauthorized, "Invalid credentials.")

	var user models.User
	err := s.store.DB(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if store.IsNotFound(err) {
			return nil, invalid
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, invalid
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return &user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.store.DB(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if store.IsNotFound(err) {
			return nil, apperror.New(apperror.CodeNotFound, "User not found.")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileUpdate) (*models.User, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.PhotoURL != nil {
		if photo := optionalString(*req.PhotoURL); photo != nil {
			if err := s.validate.Var(*photo, "url"); err != nil {
				return nil, invalidInput("Photo URL must be a valid URL.", "photo_url")
			}
		}
	}

	columns := map[string]interface{}{}
	if req.Name != nil {
		columns["name"] = *req.Name
	}
	if req.City != nil {
		columns["city"] = optionalString(*req.City)
	}
	if req.PhotoURL != nil {
		columns["photo_url"] = optionalString(*req.PhotoURL)
	}

	var user models.User
	err := s.store.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if store.IsNotFound(err) {
				return apperror.New(apperror.CodeNotFound, "User not found.")
			}
			return fmt.Errorf("load user: %w", err)
		}
		if len(columns) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(columns).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		user = models.User{}
		return tx.Where("id = ?", userID).First(&user).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("profile updated", zap.String("user_id", user.ID.String()))
	return &user, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
