package services

import (
	"time"

	"gorm.io/gorm"

	"bloodlink-backend/shared/config"
	"bloodlink-backend/shared/database/models/inventory"
	"bloodlink-backend/shared/database/models/transfer"
	"bloodlink-backend/shared/utils/cache"
)

// StatsService computes the dashboard aggregates on demand from the request
// and component stores, with a short-TTL Redis cache in front. Aggregates
// are derived read models, never a second source of truth the engine has to
// keep in sync.
type StatsService struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

// NewStatsService creates a stats service. cacheManager may be nil.
func NewStatsService(db *gorm.DB, cacheManager *cache.CacheManager) *StatsService {
	return &StatsService{db: db, cache: cacheManager}
}

// RequestStats summarizes requests by status and urgency.
type RequestStats struct {
	ByStatus  map[string]int64 `json:"by_status"`
	ByUrgency map[string]int64 `json:"by_urgency"`
	Total     int64            `json:"total"`
}

// InventoryStats summarizes ready-to-use stock.
type InventoryStats struct {
	ReadyByType       map[string]int64 `json:"ready_by_type"`
	ReadyByBloodGroup map[string]int64 `json:"ready_by_blood_group"`
	ExpiringWithin7d  int64            `json:"expiring_within_7d"`
}

type countRow struct {
	Key   string
	Count int64
}

// GetRequestStats returns request counts, served from cache when fresh.
func (s *StatsService) GetRequestStats() (*RequestStats, error) {
	var stats RequestStats
	if hit, err := s.cache.GetJSON(cache.KeyRequestStats, &stats); err == nil && hit {
		return &stats, nil
	}

	stats = RequestStats{
		ByStatus:  make(map[string]int64),
		ByUrgency: make(map[string]int64),
	}

	var rows []countRow
	if err := s.db.Model(&transfer.InterOrgRequest{}).
		Select("status as key, count(*) as count").
		Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Key] = row.Count
		stats.Total += row.Count
	}

	rows = nil
	if err := s.db.Model(&transfer.InterOrgRequest{}).
		Select("urgency as key, count(*) as count").
		Group("urgency").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByUrgency[row.Key] = row.Count
	}

	s.cacheSet(cache.KeyRequestStats, &stats)
	return &stats, nil
}

// GetInventoryStats returns ready-to-use stock counts, served from cache
// when fresh.
func (s *StatsService) GetInventoryStats() (*InventoryStats, error) {
	var stats InventoryStats
	if hit, err := s.cache.GetJSON(cache.KeyInventoryStats, &stats); err == nil && hit {
		return &stats, nil
	}

	stats = InventoryStats{
		ReadyByType:       make(map[string]int64),
		ReadyByBloodGroup: make(map[string]int64),
	}
	now := time.Now().UTC()

	var rows []countRow
	if err := s.db.Model(&inventory.Component{}).
		Select("type as key, count(*) as count").
		Where("status = ? AND expiry_date > ?", inventory.StatusReadyToUse, now).
		Group("type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ReadyByType[row.Key] = row.Count
	}

	rows = nil
	if err := s.db.Model(&inventory.Component{}).
		Select("blood_group as key, count(*) as count").
		Where("status = ? AND expiry_date > ?", inventory.StatusReadyToUse, now).
		Group("blood_group").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ReadyByBloodGroup[row.Key] = row.Count
	}

	if err := s.db.Model(&inventory.Component{}).
		Where("status = ? AND expiry_date > ? AND expiry_date <= ?",
			inventory.StatusReadyToUse, now, now.Add(7*24*time.Hour)).
		Count(&stats.ExpiringWithin7d).Error; err != nil {
		return nil, err
	}

	s.cacheSet(cache.KeyInventoryStats, &stats)
	return &stats, nil
}

func (s *StatsService) cacheSet(key string, value interface{}) {
	ttl := time.Duration(config.GetConfig().GetStatsCacheTTLSeconds()) * time.Second
	_ = s.cache.SetJSON(key, value, ttl)
}
