package store

import (
	"context"
	"fmt"
	"time"

	"github.com/muhandis-ai/muhandis/internal/profile"
	"github.com/muhandis-ai/muhandis/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Caches
	threadCache      *cache.Cache // cache for threads
	userSettingCache *cache.Cache // cache for user settings
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	// Default cache settings
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
		OnEviction:      nil,
	}

	store := &Store{
		driver:           driver,
		profile:          profile,
		cacheConfig:      cacheConfig,
		threadCache:      cache.New(cacheConfig),
		userSettingCache: cache.New(cacheConfig),
	}

	return store
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	// Stop all cache cleanup goroutines
	s.threadCache.Close()
	s.userSettingCache.Close()

	return s.driver.Close()
}

func threadCacheKey(id int32) string {
	return fmt.Sprintf("thread:%d", id)
}

func userSettingCacheKey(userID int32) string {
	return fmt.Sprintf("setting:%d", userID)
}

func (s *Store) CreateThread(ctx context.Context, create *Thread) (*Thread, error) {
	thread, err := s.driver.CreateThread(ctx, create)
	if err != nil {
		return nil, err
	}
	s.threadCache.Set(ctx, threadCacheKey(thread.ID), thread)
	return thread, nil
}

func (s *Store) ListThreads(ctx context.Context, find *FindThread) ([]*Thread, error) {
	return s.driver.ListThreads(ctx, find)
}

// GetThread returns a single thread by id, consulting the cache first.
func (s *Store) GetThread(ctx context.Context, id int32) (*Thread, error) {
	if v, ok := s.threadCache.Get(ctx, threadCacheKey(id)); ok {
		if thread, ok := v.(*Thread); ok {
			return thread, nil
		}
	}

	threads, err := s.driver.ListThreads(ctx, &FindThread{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return nil, nil
	}
	s.threadCache.Set(ctx, threadCacheKey(id), threads[0])
	return threads[0], nil
}

func (s *Store) UpdateThread(ctx context.Context, update *UpdateThread) (*Thread, error) {
	thread, err := s.driver.UpdateThread(ctx, update)
	if err != nil {
		return nil, err
	}
	s.threadCache.Set(ctx, threadCacheKey(thread.ID), thread)
	return thread, nil
}

func (s *Store) DeleteThread(ctx context.Context, delete *DeleteThread) error {
	if err := s.driver.DeleteThread(ctx, delete); err != nil {
		return err
	}
	s.threadCache.Delete(ctx, threadCacheKey(delete.ID))
	return nil
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) DeleteMessage(ctx context.Context, delete *DeleteMessage) error {
	return s.driver.DeleteMessage(ctx, delete)
}

func (s *Store) UpsertUserSetting(ctx context.Context, upsert *UpsertUserSetting) (*UserSetting, error) {
	setting, err := s.driver.UpsertUserSetting(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.userSettingCache.Set(ctx, userSettingCacheKey(setting.UserID), setting)
	return setting, nil
}

func (s *Store) GetUserSetting(ctx context.Context, find *FindUserSetting) (*UserSetting, error) {
	if find.UserID != nil {
		if v, ok := s.userSettingCache.Get(ctx, userSettingCacheKey(*find.UserID)); ok {
			if setting, ok := v.(*UserSetting); ok {
				return setting, nil
			}
		}
	}

	setting, err := s.driver.GetUserSetting(ctx, find)
	if err != nil {
		return nil, err
	}
	if setting != nil {
		s.userSettingCache.Set(ctx, userSettingCacheKey(setting.UserID), setting)
	}
	return setting, nil
}

func (s *Store) CreateEventLog(ctx context.Context, create *EventLog) (*EventLog, error) {
	return s.driver.CreateEventLog(ctx, create)
}

func (s *Store) ListEventLogs(ctx context.Context, find *FindEventLog) ([]*EventLog, error) {
	return s.driver.ListEventLogs(ctx, find)
}
