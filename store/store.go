package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cinebook-cli/model"
)

const (
	appDir             = "cinebook-cli"
	productCacheTTL    = 30 * time.Minute
	maxRecentSchedules = 8
)

const (
	KeyToken         = "token"
	KeyRole          = "role"
	KeySelectedSeats = "selectedSeats"
)

var errInvalidStorage = errors.New("invalid storage format")

type cacheEnvelope[T any] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Data      T         `json:"data"`
}

type RecentSchedule struct {
	ScheduleID int       `json:"schedule_id"`
	MovieName  string    `json:"movie_name,omitempty"`
	VisitedAt  time.Time `json:"visited_at"`
}

type scheduleHistory struct {
	Schedules []RecentSchedule `json:"schedules"`
}

// FileKV is a string key-value store persisted as one JSON object in the user config dir.
type FileKV struct {
	mu   sync.Mutex
	path string
}

// OpenFileKV returns the store at <config dir>/cinebook-cli/storage.json.
func OpenFileKV() (*FileKV, error) {
	path, err := configPath("storage.json")
	if err != nil {
		return nil, err
	}
	return &FileKV{path: path}, nil
}

func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (s *FileKV) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (s *FileKV) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.loadForWrite()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *FileKV) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.loadForWrite()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *FileKV) load() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errInvalidStorage
	}
	return values, nil
}

// loadForWrite starts over from an empty object when the file is corrupt, so
// a damaged file never blocks login or logout.
func (s *FileKV) loadForWrite() (map[string]string, error) {
	values, err := s.load()
	if errors.Is(err, errInvalidStorage) {
		return map[string]string{}, nil
	}
	return values, err
}

func (s *FileKV) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, payload, 0o600)
}

// MemoryKV keeps values for the lifetime of the process.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

func (s *MemoryKV) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryKV) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryKV) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func LoadProductCache() ([]model.Product, bool, error) {
	path, err := cachePath("products.json")
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Product](path)
	if err != nil {
		return nil, false, err
	}
	return cache.Data, time.Since(cache.UpdatedAt) <= productCacheTTL, nil
}

func SaveProductCache(products []model.Product) error {
	path, err := cachePath("products.json")
	if err != nil {
		return err
	}
	return saveCache(path, products)
}

func LoadRecentSchedules() ([]RecentSchedule, error) {
	path, err := configPath("schedules.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var history scheduleHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.New("invalid schedule history format")
	}
	return history.Schedules, nil
}

// RememberSchedule moves the schedule to the front of the history. A known
// movie name is kept when the new entry has none.
func RememberSchedule(scheduleID int, movieName string) error {
	if scheduleID <= 0 {
		return errors.New("schedule id must be greater than zero")
	}
	history, _ := LoadRecentSchedules()
	entry := RecentSchedule{ScheduleID: scheduleID, MovieName: strings.TrimSpace(movieName), VisitedAt: time.Now()}
	next := []RecentSchedule{entry}

	for _, existing := range history {
		if existing.ScheduleID == scheduleID {
			if next[0].MovieName == "" {
				next[0].MovieName = existing.MovieName
			}
			continue
		}
		next = append(next, existing)
		if len(next) >= maxRecentSchedules {
			break
		}
	}

	path, err := configPath("schedules.json")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(scheduleHistory{Schedules: next}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func loadCache[T any](path string) (cacheEnvelope[T], error) {
	var cache cacheEnvelope[T]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return cache, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, err
	}
	return cache, nil
}

func saveCache[T any](path string, data T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cache := cacheEnvelope[T]{
		UpdatedAt: time.Now(),
		Data:      data,
	}
	payload, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func configPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, name), nil
}

func cachePath(name string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, name), nil
}
