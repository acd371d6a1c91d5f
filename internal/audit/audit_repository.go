package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khanghh/riskauth/model"
	"gorm.io/gorm"
)

// TypeCount is the number of recorded events of one type.
type TypeCount struct {
	EventType string `json:"eventType"`
	Count     int64  `json:"count"`
}

type Repository interface {
	RecordEvent(ctx context.Context, event *model.SecurityEvent) error
	RecentEvents(ctx context.Context, limit int) ([]model.SecurityEvent, error)
	// CountAttacks counts events whose type marks a failure or a block.
	CountAttacks(ctx context.Context) (int64, error)
	// CountByType returns the event distribution, most frequent first.
	CountByType(ctx context.Context) ([]TypeCount, error)
}

type auditRepository struct {
	db *gorm.DB
}

func (r *auditRepository) RecordEvent(ctx context.Context, event *model.SecurityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditRepository) RecentEvents(ctx context.Context, limit int) ([]model.SecurityEvent, error) {
	var events []model.SecurityEvent
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *auditRepository) CountAttacks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SecurityEvent{}).
		Where("event_type LIKE ? OR event_type LIKE ?", "%FAIL%", "%BLOCKED%").
		Count(&count).Error
	return count, err
}

func (r *auditRepository) CountByType(ctx context.Context) ([]TypeCount, error) {
	var rows []TypeCount
	err := r.db.WithContext(ctx).
		Model(&model.SecurityEvent{}).
		Select("event_type, COUNT(*) AS count").
		Group("event_type").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

func NewRepository(db *gorm.DB) Repository {
	return &auditRepository{db: db}
}

// MemoryRepository keeps events in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID uint64
	events []model.SecurityEvent
}

func (r *MemoryRepository) RecordEvent(ctx context.Context, event *model.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	event.CreatedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryRepository) RecentEvents(ctx context.Context, limit int) ([]model.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]model.SecurityEvent, 0, len(r.events))
	for i := len(r.events) - 1; i >= 0; i-- {
		if limit > 0 && len(events) == limit {
			break
		}
		events = append(events, r.events[i])
	}
	return events, nil
}

func isAttack(eventType string) bool {
	return strings.Contains(eventType, "FAIL") || strings.Contains(eventType, "BLOCKED")
}

func (r *MemoryRepository) CountAttacks(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, event := range r.events {
		if isAttack(event.EventType) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) CountByType(ctx context.Context) ([]TypeCount, error) {
	r.mu.Lock()
	counts := make(map[string]int64)
	for _, event := range r.events {
		counts[event.EventType]++
	}
	r.mu.Unlock()

	rows := make([]TypeCount, 0, len(counts))
	for eventType, count := range counts {
		rows = append(rows, TypeCount{EventType: eventType, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].EventType < rows[j].EventType
	})
	return rows, nil
}

// Events returns a copy of everything recorded so far, oldest first.
func (r *MemoryRepository) Events() []model.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SecurityEvent(nil), r.events...)
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}
