package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"occupancy-status-backend/internal/model"
)

// Store defines the persistence operations the occupancy core relies on.
// Lookups for absent records return (nil, nil) rather than an error; callers
// decide whether absence is a 404 or a no-op.
type Store interface {
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	InsertRoom(ctx context.Context, room *model.Room) error
	UpdateRoom(ctx context.Context, room *model.Room) error
	DeleteRoom(ctx context.Context, id int64) error
	DeleteAllRooms(ctx context.Context) error

	GetLatestOccupancy(ctx context.Context, roomID int64) (*model.Occupancy, error)
	InsertOccupancy(ctx context.Context, occ *model.Occupancy) error
	UpdateOccupancy(ctx context.Context, occ *model.Occupancy) error
	ListOccupancies(ctx context.Context, roomID *int64) ([]model.Occupancy, error)
	DeleteOccupancies(ctx context.Context, roomID *int64) error

	ListRoomSubscriptions(ctx context.Context, roomID int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %d: %w", id, err)
	}
	return &room, nil
}

func (s *gormStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).Order("id").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (s *gormStore) InsertRoom(ctx context.Context, room *model.Room) error {
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		return fmt.Errorf("failed to insert room %d: %w", room.ID, err)
	}
	return nil
}

func (s *gormStore) UpdateRoom(ctx context.Context, room *model.Room) error {
	// Save writes all fields so a false IsOccupied is not skipped as a zero value.
	if err := s.db.WithContext(ctx).Save(room).Error; err != nil {
		return fmt.Errorf("failed to update room %d: %w", room.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteRoom(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&model.Room{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete room %d: %w", id, err)
	}
	return nil
}

func (s *gormStore) DeleteAllRooms(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.Room{}).Error; err != nil {
		return fmt.Errorf("failed to delete rooms: %w", err)
	}
	return nil
}

// GetLatestOccupancy returns the most recent occupancy for a room. The ID
// column is a reverse-time key, so ascending ID order within a room is
// newest-first and the latest record is the first match of the index scan.
func (s *gormStore) GetLatestOccupancy(ctx context.Context, roomID int64) (*model.Occupancy, error) {
	var occ model.Occupancy
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id").
		First(&occ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest occupancy for room %d: %w", roomID, err)
	}
	return &occ, nil
}

func (s *gormStore) InsertOccupancy(ctx context.Context, occ *model.Occupancy) error {
	if err := s.db.WithContext(ctx).Create(occ).Error; err != nil {
		return fmt.Errorf("failed to insert occupancy for room %d: %w", occ.RoomID, err)
	}
	return nil
}

func (s *gormStore) UpdateOccupancy(ctx context.Context, occ *model.Occupancy) error {
	if err := s.db.WithContext(ctx).Save(occ).Error; err != nil {
		return fmt.Errorf("failed to update occupancy %d: %w", occ.ID, err)
	}
	return nil
}

func (s *gormStore) ListOccupancies(ctx context.Context, roomID *int64) ([]model.Occupancy, error) {
	q := s.db.WithContext(ctx).Order("room_id, id")
	if roomID != nil {
		q = q.Where("room_id = ?", *roomID)
	}
	var occs []model.Occupancy
	if err := q.Find(&occs).Error; err != nil {
		return nil, fmt.Errorf("failed to list occupancies: %w", err)
	}
	return occs, nil
}

// ListRoomSubscriptions returns the push subscriptions watching a room.
func (s *gormStore) ListRoomSubscriptions(ctx context.Context, roomID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_room_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.room_id = ?", roomID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for room %d: %w", roomID, err)
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
	}
	return nil
}

func (s *gormStore) DeleteOccupancies(ctx context.Context, roomID *int64) error {
	q := s.db.WithContext(ctx)
	if roomID != nil {
		q = q.Where("room_id = ?", *roomID)
	} else {
		q = q.Where("1 = 1")
	}
	if err := q.Delete(&model.Occupancy{}).Error; err != nil {
		return fmt.Errorf("failed to delete occupancies: %w", err)
	}
	return nil
}
