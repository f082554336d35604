package service

import (
	"context"
	"fmt"
)

type HealthService struct {
	checkers []HealthChecker
}

func NewHealthService(checkers ...HealthChecker) *HealthService {
	return &HealthService{checkers: checkers}
}

func (s *HealthService) HealthCheck(ctx context.Context) error {
	for _, c := range s.checkers {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("health check: %w", err)
		}
	}
	return nil
}
