// Package availability projects active bookings onto per-bed occupied intervals.
// Answers are advisory: the allocation transaction re-checks before it commits.
package availability

import (
	"context"
	"sort"

	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/pkg/log"
)

// Store is the read side the index projects from.
type Store interface {
	ListBeds(ctx context.Context, roomType entity.RoomType) ([]entity.Bed, error)
	FindOccupiedIntervals(ctx context.Context, bedID int64) ([]entity.Interval, error)
}

// Cache keeps the sorted intervals of one bed.
type Cache interface {
	Get(ctx context.Context, bedID int64) ([]entity.Interval, bool, error)
	Set(ctx context.Context, bedID int64, intervals []entity.Interval) error
	Invalidate(ctx context.Context, bedID int64) error
}

type Index struct {
	store Store
	cache Cache
	log   log.Logger
}

func New(store Store, cache Cache, log log.Logger) *Index {
	return &Index{
		store: store,
		cache: cache,
		log:   log,
	}
}

// Intervals returns the occupied intervals of bedID sorted by check-in.
// Cache failures fall through to the store.
func (i *Index) Intervals(ctx context.Context, bedID int64) ([]entity.Interval, error) {
	return i.intervals(ctx, bedID, false)
}

// intervals skips the cache lookup when fresh is set; the store answer is cached either way.
func (i *Index) intervals(ctx context.Context, bedID int64, fresh bool) ([]entity.Interval, error) {
	if i.cache != nil && !fresh {
		cached, ok, err := i.cache.Get(ctx, bedID)
		if err != nil {
			i.log.Warn(ctx, "availability cache read failed", err)
		}
		if ok {
			return cached, nil
		}
	}

	intervals, err := i.store.FindOccupiedIntervals(ctx, bedID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(intervals, func(a, b int) bool {
		return intervals[a].CheckIn.Before(intervals[b].CheckIn)
	})

	if i.cache != nil {
		if err := i.cache.Set(ctx, bedID, intervals); err != nil {
			i.log.Warn(ctx, "availability cache write failed", err)
		}
	}
	return intervals, nil
}

func (i *Index) IsFree(ctx context.Context, bedID int64, r entity.DateRange) (bool, error) {
	return i.isFree(ctx, bedID, r, false)
}

func (i *Index) isFree(ctx context.Context, bedID int64, r entity.DateRange, fresh bool) (bool, error) {
	intervals, err := i.intervals(ctx, bedID, fresh)
	if err != nil {
		return false, err
	}
	return free(intervals, r), nil
}

// FreeBeds returns up to count beds of roomType that can hold partySize for r, ordered
// by room number, bed number and id. count <= 0 returns all of them.
func (i *Index) FreeBeds(ctx context.Context, roomType entity.RoomType, r entity.DateRange, partySize, count int) ([]entity.Bed, error) {
	return i.freeBeds(ctx, roomType, r, partySize, count, false)
}

// FreshFreeBeds is FreeBeds read from the store only. A cache entry written after a
// concurrent invalidation can still list a released booking; this rewrites it.
func (i *Index) FreshFreeBeds(ctx context.Context, roomType entity.RoomType, r entity.DateRange, partySize, count int) ([]entity.Bed, error) {
	return i.freeBeds(ctx, roomType, r, partySize, count, true)
}

func (i *Index) freeBeds(ctx context.Context, roomType entity.RoomType, r entity.DateRange, partySize, count int, fresh bool) ([]entity.Bed, error) {
	beds, err := i.store.ListBeds(ctx, roomType)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(beds, func(a, b int) bool {
		if beds[a].RoomNumber != beds[b].RoomNumber {
			return beds[a].RoomNumber < beds[b].RoomNumber
		}
		if beds[a].BedNumber != beds[b].BedNumber {
			return beds[a].BedNumber < beds[b].BedNumber
		}
		return beds[a].ID < beds[b].ID
	})

	out := []entity.Bed{}
	for _, bed := range beds {
		if bed.RoomType != roomType || !bed.Status.Allocatable() || bed.Capacity < partySize {
			continue
		}
		ok, err := i.isFree(ctx, bed.ID, r, fresh)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, bed)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}

// Invalidate drops the cached intervals of bedID. Errors are logged only; the entry
// still expires with its TTL.
func (i *Index) Invalidate(ctx context.Context, bedID int64) {
	if i.cache == nil || bedID == 0 {
		return
	}
	if err := i.cache.Invalidate(ctx, bedID); err != nil {
		i.log.Warn(ctx, "availability cache invalidation failed", err)
	}
}

func free(intervals []entity.Interval, r entity.DateRange) bool {
	for _, iv := range intervals {
		// sorted by check-in, nothing later can overlap
		if !iv.CheckIn.Before(r.CheckOut) {
			break
		}
		if iv.Range().Overlaps(r) {
			return false
		}
	}
	return true
}
