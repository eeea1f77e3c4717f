package service

import (
	"context"
	"fmt"

	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type counter interface {
	pinger
	CountUsers(ctx context.Context) (int64, error)
	CountFiles(ctx context.Context) (int64, error)
}

// StatsService reports liveness and entity counts.
type StatsService struct {
	db    counter
	cache pinger
}

func NewStatsService(db counter, cache pinger) *StatsService {
	return &StatsService{
		db:    db,
		cache: cache,
	}
}

// Status pings both backing stores.
func (s *StatsService) Status(ctx context.Context) models.StatusResponse {
	dbErr := s.db.Ping(ctx)
	if dbErr != nil {
		logger.Log.Warnw("document store is not reachable", "error", dbErr)
	}
	cacheErr := s.cache.Ping(ctx)
	if cacheErr != nil {
		logger.Log.Warnw("session cache is not reachable", "error", cacheErr)
	}

	return models.StatusResponse{
		DB:    dbErr == nil,
		Redis: cacheErr == nil,
	}
}

func (s *StatsService) Stats(ctx context.Context) (*models.StatsResponse, error) {
	users, err := s.db.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/stats.go/Stats(): error while `s.db.CountUsers()` calling: %w", err)
	}

	files, err := s.db.CountFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/stats.go/Stats(): error while `s.db.CountFiles()` calling: %w", err)
	}

	return &models.StatsResponse{Users: users, Files: files}, nil
}
