package tracker

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"occupancy-status-backend/internal/model"
)

// fakeStore is an in-memory Store for exercising the tracker without a
// database.
type fakeStore struct {
	rooms       map[int64]model.Room
	occupancies map[int64]model.Occupancy // keyed by sort key
	failing     bool
}

var errStoreDown = gorm.ErrInvalidDB

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:       make(map[int64]model.Room),
		occupancies: make(map[int64]model.Occupancy),
	}
}

func (f *fakeStore) GetRoom(_ context.Context, id int64) (*model.Room, error) {
	if f.failing {
		return nil, errStoreDown
	}
	if room, ok := f.rooms[id]; ok {
		return &room, nil
	}
	return nil, nil
}

func (f *fakeStore) ListRooms(context.Context) ([]model.Room, error) {
	var rooms []model.Room
	for _, r := range f.rooms {
		rooms = append(rooms, r)
	}
	return rooms, nil
}

func (f *fakeStore) InsertRoom(_ context.Context, room *model.Room) error {
	f.rooms[room.ID] = *room
	return nil
}

func (f *fakeStore) UpdateRoom(_ context.Context, room *model.Room) error {
	if f.failing {
		return errStoreDown
	}
	f.rooms[room.ID] = *room
	return nil
}

func (f *fakeStore) DeleteRoom(_ context.Context, id int64) error {
	delete(f.rooms, id)
	return nil
}

func (f *fakeStore) DeleteAllRooms(context.Context) error {
	f.rooms = make(map[int64]model.Room)
	return nil
}

func (f *fakeStore) GetLatestOccupancy(_ context.Context, roomID int64) (*model.Occupancy, error) {
	if f.failing {
		return nil, errStoreDown
	}
	keys := f.sortedKeys(roomID)
	if len(keys) == 0 {
		return nil, nil
	}
	occ := f.occupancies[keys[0]]
	return &occ, nil
}

func (f *fakeStore) InsertOccupancy(_ context.Context, occ *model.Occupancy) error {
	if f.failing {
		return errStoreDown
	}
	f.occupancies[occ.ID] = *occ
	return nil
}

func (f *fakeStore) UpdateOccupancy(_ context.Context, occ *model.Occupancy) error {
	if f.failing {
		return errStoreDown
	}
	f.occupancies[occ.ID] = *occ
	return nil
}

func (f *fakeStore) ListOccupancies(_ context.Context, roomID *int64) ([]model.Occupancy, error) {
	var occs []model.Occupancy
	for _, o := range f.occupancies {
		if roomID == nil || o.RoomID == *roomID {
			occs = append(occs, o)
		}
	}
	return occs, nil
}

func (f *fakeStore) DeleteOccupancies(_ context.Context, roomID *int64) error {
	for k, o := range f.occupancies {
		if roomID == nil || o.RoomID == *roomID {
			delete(f.occupancies, k)
		}
	}
	return nil
}

func (f *fakeStore) ListRoomSubscriptions(context.Context, int64) ([]model.PushSubscription, error) {
	return nil, nil
}

func (f *fakeStore) DeleteSubscription(context.Context, string) error { return nil }

func (f *fakeStore) DB() *gorm.DB { return nil }

// sortedKeys returns a room's occupancy keys in ascending order, which is
// newest-first for the reverse-time key, mirroring the real store's scan.
func (f *fakeStore) sortedKeys(roomID int64) []int64 {
	var keys []int64
	for k, o := range f.occupancies {
		if o.RoomID == roomID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (f *fakeStore) openCount(roomID int64) int {
	count := 0
	for _, o := range f.occupancies {
		if o.RoomID == roomID && o.EndTime == nil {
			count++
		}
	}
	return count
}

func newTestTracker(s *fakeStore, start time.Time) (*Tracker, *time.Time) {
	now := start
	tr := New(s)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestSetOccupied_OpensInterval(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(s, t0)

	occ, err := tr.SetOccupied(context.Background(), 1, true)
	require.NoError(t, err)
	require.NotNil(t, occ)
	assert.Equal(t, int64(1), occ.RoomID)
	assert.Equal(t, t0, occ.StartTime)
	assert.Nil(t, occ.EndTime)
	assert.Equal(t, model.SortKey(t0), occ.ID)
}

func TestSetOccupied_IsIdempotent(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(s, t0)

	first, err := tr.SetOccupied(context.Background(), 1, true)
	require.NoError(t, err)

	*now = t0.Add(5 * time.Minute)
	second, err := tr.SetOccupied(context.Background(), 1, true)
	require.NoError(t, err)

	// Repeated "occupied" signals must not fragment the history.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, len(s.occupancies))
	assert.Equal(t, 1, s.openCount(1))
}

func TestSetOccupied_ClosesOpenInterval(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(s, t0)

	_, err := tr.SetOccupied(context.Background(), 1, true)
	require.NoError(t, err)

	t1 := t0.Add(20 * time.Minute)
	*now = t1
	occ, err := tr.SetOccupied(context.Background(), 1, false)
	require.NoError(t, err)
	require.NotNil(t, occ)
	require.NotNil(t, occ.EndTime)
	assert.Equal(t, t0, occ.StartTime)
	assert.Equal(t, t1, *occ.EndTime)
	assert.Equal(t, 0, s.openCount(1))
}

func TestSetOccupied_FalseWithNoOpenIntervalIsNoOp(t *testing.T) {
	s := newFakeStore()
	tr, _ := newTestTracker(s, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	occ, err := tr.SetOccupied(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Nil(t, occ)
	assert.Empty(t, s.occupancies)
}

func TestSetOccupied_FalseWithClosedIntervalIsNoOp(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(s, t0)

	_, err := tr.SetOccupied(context.Background(), 1, true)
	require.NoError(t, err)
	*now = t0.Add(10 * time.Minute)
	closed, err := tr.SetOccupied(context.Background(), 1, false)
	require.NoError(t, err)

	*now = t0.Add(15 * time.Minute)
	again, err := tr.SetOccupied(context.Background(), 1, false)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, closed.ID, again.ID)
	assert.Equal(t, *closed.EndTime, *again.EndTime, "end time must not move on a redundant close")
	assert.Equal(t, 1, len(s.occupancies))
}

func TestSetOccupied_AtMostOneOpenInterval(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(s, t0)

	signals := []bool{true, true, false, true, false, false, true, true}
	for i, desired := range signals {
		*now = t0.Add(time.Duration(i) * time.Minute)
		_, err := tr.SetOccupied(context.Background(), 7, desired)
		require.NoError(t, err)
		assert.LessOrEqual(t, s.openCount(7), 1, "after signal %d", i)
	}

	// true,true / false / true / false,false / true,true: three real visits.
	assert.Equal(t, 3, len(s.occupancies))
	assert.Equal(t, 1, s.openCount(7))
}

func TestSetOccupied_NewestIntervalWins(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(s, t0)

	for i := 0; i < 3; i++ {
		*now = t0.Add(time.Duration(2*i) * time.Hour)
		_, err := tr.SetOccupied(context.Background(), 1, true)
		require.NoError(t, err)
		*now = t0.Add(time.Duration(2*i+1) * time.Hour)
		_, err = tr.SetOccupied(context.Background(), 1, false)
		require.NoError(t, err)
	}

	latest, err := s.GetLatestOccupancy(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, t0.Add(4*time.Hour), latest.StartTime)
}

func TestSetOccupied_StoreFailurePropagates(t *testing.T) {
	s := newFakeStore()
	s.failing = true
	tr, _ := newTestTracker(s, time.Now().UTC())

	_, err := tr.SetOccupied(context.Background(), 1, true)
	assert.Error(t, err)
	assert.Empty(t, s.occupancies, "no partial write on failure")
}

func TestRefreshRoom_UpdatesProjectionOnChange(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(s, t0)

	room := &model.Room{ID: 1, Description: "Room A", LastUpdate: t0.Add(-time.Hour)}
	require.NoError(t, s.InsertRoom(context.Background(), room))

	*now = t0
	changed, err := tr.RefreshRoom(context.Background(), room, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, room.IsOccupied)
	assert.Equal(t, t0, room.LastUpdate)
	assert.True(t, s.rooms[1].IsOccupied)
}

func TestRefreshRoom_RedundantWriteIsNoOp(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(s, t0)

	lastUpdate := t0.Add(-time.Hour)
	room := &model.Room{ID: 1, IsOccupied: true, LastUpdate: lastUpdate}
	require.NoError(t, s.InsertRoom(context.Background(), room))

	*now = t0
	changed, err := tr.RefreshRoom(context.Background(), room, true)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, lastUpdate, room.LastUpdate, "LastUpdate must not advance on a redundant write")
}

func TestIsOccupied_DerivedFromHistory(t *testing.T) {
	s := newFakeStore()
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(s, t0)

	occupied, err := tr.IsOccupied(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, occupied)

	_, err = tr.SetOccupied(context.Background(), 1, true)
	require.NoError(t, err)
	occupied, err = tr.IsOccupied(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, occupied)

	*now = t0.Add(time.Minute)
	_, err = tr.SetOccupied(context.Background(), 1, false)
	require.NoError(t, err)
	occupied, err = tr.IsOccupied(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, occupied)
}
