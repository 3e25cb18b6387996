package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
	"garage-system/internal/utils"
)

const (
	USER_CACHE_PREFIX = "user:"
	CACHE_TTL_MEDIUM  = 30 * time.Minute

	tokenTTL = 24 * time.Hour
)

type UserHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewUserHandler(db *gorm.DB, redisClient *redis.Client) *UserHandler {
	return &UserHandler{
		db:    db,
		redis: redisClient,
	}
}

type RegisterInput struct {
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	HourlyRate string `json:"hourly_rate"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

type VehicleInput struct {
	Plate string `json:"plate" binding:"required"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int32  `json:"year"`
}

func (s *UserHandler) invalidateUserCache(ctx context.Context, userIDs ...int64) {
	if s.redis == nil {
		return
	}
	for _, id := range userIDs {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%d", USER_CACHE_PREFIX, id))
	}
}

// Register creates an account. Unknown or empty roles default to client;
// only an authenticated manager may create manager or mechanic accounts,
// which the gateway enforces before calling here.
func (s *UserHandler) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role := in.Role
	switch role {
	case models.RoleClient, models.RoleManager, models.RoleMechanic:
	case "":
		role = models.RoleClient
	default:
		return nil, apperr.New(apperr.KindValidation, "unknown role %q", in.Role)
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&existing).Error; err == nil {
		return nil, apperr.New(apperr.KindConflict, "email %s is already registered", in.Email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Password:   string(pwHash),
		Role:       role,
		Phone:      in.Phone,
		Address:    in.Address,
		IsActive:   true,
		HourlyRate: "0.00",
	}
	if role == models.RoleMechanic && in.HourlyRate != "" {
		user.HourlyRate = in.HourlyRate
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Email, user.Role, tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")

	return &AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}

// Login verifies credentials and issues a JWT. Inactive accounts cannot
// sign in; the same error hides whether the email exists.
func (s *UserHandler) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", in.Email, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindForbidden, "invalid email or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, apperr.New(apperr.KindForbidden, "invalid email or password")
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Email, user.Role, tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to stamp last login")
	}
	s.invalidateUserCache(ctx, user.ID)

	return &AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *UserHandler) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user %d not found", id)
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserHandler) List(ctx context.Context, role string, activeOnly bool) ([]models.User, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var users []models.User
	err := query.Order("last_name, first_name").Find(&users).Error
	return users, err
}

// Deactivate soft-disables an account. Deactivated mechanics drop out of
// the availability headcount immediately.
func (s *UserHandler) Deactivate(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "user %d not found", id)
	}
	s.invalidateUserCache(ctx, id)
	return nil
}

// UpdateHourlyRate changes a mechanic's rate. Existing quote assignments
// keep their snapshotted rate.
func (s *UserHandler) UpdateHourlyRate(ctx context.Context, mechanicID int64, rate string) (*models.User, error) {
	user, err := s.Get(ctx, mechanicID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleMechanic {
		return nil, apperr.New(apperr.KindValidation, "user %d is not a mechanic", mechanicID)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("hourly_rate", rate).Error; err != nil {
		return nil, err
	}
	s.invalidateUserCache(ctx, mechanicID)
	return s.Get(ctx, mechanicID)
}

// AddVehicle registers a vehicle under a client account.
func (s *UserHandler) AddVehicle(ctx context.Context, clientID int64, in VehicleInput) (*models.Vehicle, error) {
	client, err := s.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.Role != models.RoleClient {
		return nil, apperr.New(apperr.KindValidation, "user %d is not a client", clientID)
	}

	var existing models.Vehicle
	if err := s.db.WithContext(ctx).Where("plate = ?", in.Plate).First(&existing).Error; err == nil {
		return nil, apperr.New(apperr.KindConflict, "plate %s is already registered", in.Plate)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	vehicle := models.Vehicle{
		ClientID: clientID,
		Plate:    in.Plate,
		Make:     in.Make,
		Model:    in.Model,
		Year:     in.Year,
	}
	if err := s.db.WithContext(ctx).Create(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (s *UserHandler) ListVehicles(ctx context.Context, clientID int64) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at desc").
		Find(&vehicles).Error
	return vehicles, err
}
