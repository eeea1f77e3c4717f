package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/patric-chuzhbe/filesmanager/internal/auth"
	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, email, passwordDigest string) (int64, error)
	GetUserByID(ctx context.Context, userID int64) (*user.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error)
}

type welcomeQueue interface {
	Enqueue(ctx context.Context, job models.WelcomeJob) error
}

// UserService registers users and describes the caller.
type UserService struct {
	db      userKeeper
	welcome welcomeQueue
}

func NewUserService(db userKeeper, welcome welcomeQueue) *UserService {
	return &UserService{
		db:      db,
		welcome: welcome,
	}
}

func alreadyExists() error {
	return &models.ValidationError{Err: models.ErrAlreadyExists, Msg: "Already exist"}
}

// Register creates a user with a hashed password.
func (s *UserService) Register(ctx context.Context, request models.CreateUserRequest) (*models.UserResponse, error) {
	if request.Email == "" {
		return nil, models.MissingField("email")
	}
	if request.Password == "" {
		return nil, models.MissingField("password")
	}

	_, exists, err := s.db.GetUserByEmail(ctx, request.Email)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/users.go/Register(): error while `s.db.GetUserByEmail()` calling: %w", err)
	}
	if exists {
		return nil, alreadyExists()
	}

	userID, err := s.db.CreateUser(ctx, request.Email, auth.HashPassword(request.Password))
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return nil, alreadyExists()
		}
		return nil, fmt.Errorf("in internal/service/users.go/Register(): error while `s.db.CreateUser()` calling: %w", err)
	}

	if err := s.welcome.Enqueue(ctx, models.WelcomeJob{UserID: userID}); err != nil {
		logger.Log.Errorw("welcome job was not enqueued", "userId", userID, "error", err)
	}

	return &models.UserResponse{
		ID:    strconv.FormatInt(userID, 10),
		Email: request.Email,
	}, nil
}

// Me describes the caller. A session whose user is gone is unauthorized.
func (s *UserService) Me(ctx context.Context, userID int64) (*models.UserResponse, error) {
	usr, found, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/users.go/Me(): error while `s.db.GetUserByID()` calling: %w", err)
	}
	if !found {
		return nil, models.ErrUnauthorized
	}

	return &models.UserResponse{
		ID:    strconv.FormatInt(usr.ID, 10),
		Email: usr.Email,
	}, nil
}
