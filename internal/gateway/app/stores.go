package app

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"protoreview/internal/gateway/config"
	"protoreview/internal/gateway/repository/protocolstore"
	"protoreview/internal/gateway/repository/review"
	"protoreview/internal/gateway/repository/reviewer"
	"protoreview/internal/gateway/repository/sourcedoc"
	"protoreview/internal/session"
)

type gatewayStores struct {
	protocols *protocolstore.Store
	reviews   *review.Store
	reviewers *reviewer.Store
	sources   sourcedoc.Store
}

// initStores picks Postgres when PROTOCOL_STORE_PG_DSN is set and falls back
// to JSON files under the data directory otherwise.
func initStores(cfg *config.Config) (*gatewayStores, error) {
	stores := &gatewayStores{
		protocols: protocolstore.NewFromEnv(filepath.Join(cfg.DataDir, "protocol_states.json")),
		reviews:   review.NewFromEnv(filepath.Join(cfg.DataDir, "field_reviews.json")),
		reviewers: reviewer.NewFromEnv(filepath.Join(cfg.DataDir, "reviewers.json")),
	}

	sources, err := chooseSourceStore(cfg)
	if err != nil {
		return nil, err
	}
	stores.sources = sources
	return stores, nil
}

func chooseSourceStore(cfg *config.Config) (sourcedoc.Store, error) {
	if !cfg.Source.CanUseS3() {
		if cfg.Source.Enabled {
			log.Printf("source store: using in-memory fallback (s3 config incomplete)")
		}
		return sourcedoc.NewMemoryStore(), nil
	}
	s3Store, err := sourcedoc.NewS3Store(sourcedoc.S3Config{
		Endpoint:  cfg.Source.Endpoint,
		Region:    cfg.Source.Region,
		AccessKey: cfg.Source.AccessKey,
		SecretKey: cfg.Source.SecretKey,
		Bucket:    cfg.Source.Bucket,
		UseSSL:    cfg.Source.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize source s3 store: %w", err)
	}
	log.Printf("source store: s3 bucket=%s endpoint=%s", cfg.Source.Bucket, cfg.Source.Endpoint)
	return s3Store, nil
}

func initSessions(cfg *config.Config) (*session.RedisStore, error) {
	url := strings.TrimSpace(cfg.RedisURL)
	if url == "" {
		url = "redis://127.0.0.1:6379/0"
	}
	store, err := session.NewRedisStore(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect session redis: %w", err)
	}
	return store, nil
}

// persist flushes the file-backed stores. The Postgres backends write through
// on every call, so this is a no-op for them.
func (s *gatewayStores) persist() {
	s.protocols.Save()
	s.reviews.Save()
	s.reviewers.Save()
}
