package services

import (
	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/database"
	"github.com/transitworks/bus-booking-backend/internal/errs"
	"github.com/transitworks/bus-booking-backend/internal/models"
	"github.com/transitworks/bus-booking-backend/pkg/jwt"
)

// AuthService handles user registration and login
type AuthService struct {
	userRepo   *database.UserRepository
	jwtService *jwt.Service
	bcryptCost int
	logger     *logrus.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo *database.UserRepository, jwtService *jwt.Service, bcryptCost int, logger *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a new passenger account and returns a signed token
func (s *AuthService) Register(req *models.RegisterRequest) (*models.AuthResponse, error) {
	exists, err := s.userRepo.EmailExists(req.Email)
	if err != nil {
		return nil, errs.Internal("failed to register user", err)
	}
	if exists {
		return nil, errs.Conflict("email is already registered")
	}

	user := &models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      models.RolePassenger,
	}
	if err := user.SetPassword(req.Password, s.bcryptCost); err != nil {
		return nil, errs.Internal("failed to register user", err)
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, errs.Internal("failed to register user", err)
	}

	token, err := s.jwtService.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, errs.Internal("failed to issue token", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return &models.AuthResponse{Token: token, User: user}, nil
}

// Login verifies credentials and returns a signed token
func (s *AuthService) Login(req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		return nil, errs.Internal("failed to log in", err)
	}
	if user == nil || !user.CheckPassword(req.Password) {
		return nil, errs.Unauthorized("invalid email or password")
	}

	token, err := s.jwtService.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, errs.Internal("failed to issue token", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")

	return &models.AuthResponse{Token: token, User: user}, nil
}

// GetProfile returns the account for an authenticated identity
func (s *AuthService) GetProfile(identity models.Identity) (*models.User, error) {
	user, err := s.userRepo.GetByID(identity.UserID)
	if err != nil {
		return nil, errs.Internal("failed to load profile", err)
	}
	if user == nil {
		return nil, errs.NotFound("user not found")
	}
	return user, nil
}
