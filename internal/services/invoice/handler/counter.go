package handler

import (
	"context"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"garage-system/internal/database/models"
)

// Sequence hands out strictly monotonically increasing numbers. Values
// are never reused and never skipped: concurrent callers each get a
// distinct consecutive value.
type Sequence interface {
	Next(ctx context.Context, name string) (int64, error)
}

// RedisSequence allocates numbers with INCR, which is atomic on the
// redis server. This is the production implementation.
type RedisSequence struct {
	redis *redis.Client
}

func NewRedisSequence(redisClient *redis.Client) *RedisSequence {
	return &RedisSequence{redis: redisClient}
}

func (s *RedisSequence) Next(ctx context.Context, name string) (int64, error) {
	return s.redis.Incr(ctx, "seq:"+name).Result()
}

// DBSequence allocates numbers from a counter row incremented inside a
// transaction, so the row lock serializes concurrent allocations. Used
// in tests and redis-less deployments.
type DBSequence struct {
	db *gorm.DB
}

func NewDBSequence(db *gorm.DB) *DBSequence {
	return &DBSequence{db: db}
}

func (s *DBSequence) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := models.SequenceCounter{Name: name}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.SequenceCounter{}).
			Where("name = ?", name).
			UpdateColumn("seq", gorm.Expr("seq + ?", 1)).Error; err != nil {
			return err
		}
		var row models.SequenceCounter
		if err := tx.Where("name = ?", name).First(&row).Error; err != nil {
			return err
		}
		value = row.Seq
		return nil
	})
	return value, err
}
