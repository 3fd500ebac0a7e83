package service

import (
	"context"
	"time"

	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/repository"
)

// eventListLimit caps how many events one request may return.
const eventListLimit = 100

type EventLogService struct {
	events repository.Events
}

func NewEventLogService(events repository.Events) *EventLogService {
	return &EventLogService{events: events}
}

// List returns state-change events from the last N hours, newest first.
func (s *EventLogService) List(ctx context.Context, hours int) ([]models.PumpEvent, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	return s.events.List(ctx, since, eventListLimit)
}
