package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/constants"
	"github.com/manasdutta04/matchwise/internal/logger"
)

// Redis provides ingest deduplication: every accepted CV text leaves its
// MD5 in a set so a re-submission of identical text is detected before
// extraction runs again.
type Redis struct {
	Client *redis.Client
	cfg    *config.RedisConfig
}

func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config must not be nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Address, err)
	}

	logger.Logger.Info().Str("address", cfg.Address).Msg("redis connected")
	return &Redis{Client: client, cfg: cfg}, nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// RawTextExpire is the dedupe-record TTL from config, falling back to the
// package default.
func (r *Redis) RawTextExpire() time.Duration {
	if r.cfg.RawTextExpireDays > 0 {
		return time.Duration(r.cfg.RawTextExpireDays) * 24 * time.Hour
	}
	return constants.DefaultRawTextExpire
}

// RawTextMD5 fingerprints CV text for deduplication.
func RawTextMD5(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CheckAndAddRawTextMD5 atomically records md5Hex and reports whether it
// was already present. The set's TTL is refreshed only when absent, so a
// busy ingest stream cannot keep records alive forever.
func (r *Redis) CheckAndAddRawTextMD5(ctx context.Context, md5Hex, sourceID string) (exists bool, firstSource string, err error) {
	added, err := r.Client.SAdd(ctx, constants.KeyRawTextMD5Set, md5Hex).Result()
	if err != nil {
		return false, "", fmt.Errorf("recording raw text md5: %w", err)
	}
	if err := r.Client.ExpireNX(ctx, constants.KeyRawTextMD5Set, r.RawTextExpire()).Err(); err != nil {
		return false, "", fmt.Errorf("setting dedupe set expiry: %w", err)
	}

	sourceKey := fmt.Sprintf(constants.KeyRawTextMD5ToSource, md5Hex)
	if added == 1 {
		// First sighting; remember which source carried it.
		if err := r.Client.Set(ctx, sourceKey, sourceID, r.RawTextExpire()).Err(); err != nil {
			return false, "", fmt.Errorf("recording md5 source: %w", err)
		}
		return false, sourceID, nil
	}

	firstSource, err = r.Client.Get(ctx, sourceKey).Result()
	if err == redis.Nil {
		firstSource = ""
	} else if err != nil {
		return true, "", fmt.Errorf("reading md5 source: %w", err)
	}
	return true, firstSource, nil
}

// RemoveRawTextMD5 drops a dedupe record, used when ingest fails after
// the fingerprint was taken.
func (r *Redis) RemoveRawTextMD5(ctx context.Context, md5Hex string) error {
	pipe := r.Client.Pipeline()
	pipe.SRem(ctx, constants.KeyRawTextMD5Set, md5Hex)
	pipe.Del(ctx, fmt.Sprintf(constants.KeyRawTextMD5ToSource, md5Hex))
	_, err := pipe.Exec(ctx)
	return err
}
