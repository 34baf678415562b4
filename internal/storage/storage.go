package storage

import (
	"context"
	"fmt"

	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/logger"
)

// Storage aggregates every backing store the screening pipeline uses.
// MySQL is the system of record and is mandatory; Redis (dedupe), MinIO
// (raw text archive) and RabbitMQ (pipeline events) are optional and are
// only initialized when configured. Callers must nil-check the optional
// members.
type Storage struct {
	MySQL    *MySQL
	Redis    *Redis
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
}

func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log := logger.Logger.With().Str("component", "storage").Logger()

	s := &Storage{}
	var err error

	s.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("initializing mysql: %w", err)
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedis(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis init failed, CV dedupe disabled")
			s.Redis = nil
		}
	} else {
		log.Info().Msg("redis not configured, CV dedupe disabled")
	}

	if cfg.MinIO.Endpoint != "" {
		s.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			log.Warn().Err(err).Msg("minio init failed, raw text archive disabled")
			s.MinIO = nil
		}
	} else {
		log.Info().Msg("minio not configured, raw text archive disabled")
	}

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq init failed, pipeline events disabled")
			s.RabbitMQ = nil
		}
	} else {
		log.Info().Msg("rabbitmq not configured, pipeline events disabled")
	}

	return s, nil
}

// Close releases every open connection. Errors are logged, not returned,
// so shutdown always walks the full list.
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("closing rabbitmq")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("closing redis")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("closing mysql")
		}
	}
}
