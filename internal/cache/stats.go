package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/ratehub/ratehub/internal/models"
)

const (
	dashboardKey = "ratehub:dashboard:stats"
	dashboardTTL = 30 * time.Second
)

type DashboardStats struct {
	TotalUsers   int64 `json:"total_users"`
	TotalStores  int64 `json:"total_stores"`
	TotalRatings int64 `json:"total_ratings"`
}

// StatsCache answers the admin dashboard totals from redis, falling back to
// SQL counts on a miss. A nil redis client disables caching entirely, so the
// service runs without redis in tests and minimal deployments.
type StatsCache struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewStatsCache(db *gorm.DB, rdb *redis.Client) *StatsCache {
	return &StatsCache{db: db, rdb: rdb}
}

func (s *StatsCache) Dashboard(ctx context.Context) (DashboardStats, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, dashboardKey).Result()
		if err == nil {
			var stats DashboardStats
			if err := json.Unmarshal([]byte(raw), &stats); err == nil {
				return stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Println("stats cache read error:", err)
		}
	}

	stats, err := s.count(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.rdb.Set(ctx, dashboardKey, raw, dashboardTTL).Err(); err != nil {
				log.Println("stats cache write error:", err)
			}
		}
	}

	return stats, nil
}

// Invalidate drops the cached totals after a write that changes any count.
func (s *StatsCache) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, dashboardKey).Err(); err != nil {
		log.Println("stats cache invalidate error:", err)
	}
}

func (s *StatsCache) count(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return DashboardStats{}, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Store{}).Count(&stats.TotalStores).Error; err != nil {
		return DashboardStats{}, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Rating{}).Count(&stats.TotalRatings).Error; err != nil {
		return DashboardStats{}, err
	}

	return stats, nil
}
