package thumbnailer

import (
	"context"
	"fmt"

	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/user"
)

type userFinder interface {
	GetUserByID(ctx context.Context, userID int64) (*user.User, bool, error)
}

// Welcomer greets users after registration.
type Welcomer struct {
	db userFinder
}

func NewWelcomer(db userFinder) *Welcomer {
	return &Welcomer{db: db}
}

func (w *Welcomer) Handle(ctx context.Context, job models.WelcomeJob) error {
	if job.UserID <= 0 {
		return ErrMissingUserID
	}

	usr, found, err := w.db.GetUserByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("in internal/thumbnailer/welcome.go/Handle(): error while `w.db.GetUserByID()` calling: %w", err)
	}
	if !found {
		return fmt.Errorf("in internal/thumbnailer/welcome.go/Handle(): user %d: %w", job.UserID, models.ErrNotFound)
	}

	logger.Log.Infof("Welcome %s!", usr.Email)

	return nil
}
