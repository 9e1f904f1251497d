package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"

	"docindex/internal/domain"
)

// CurrentSchemaVersion is the bucket layout written by this build.
// Increment it when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyProfile       = []byte("profile")
)

// SchemaInfo describes what an index file was written with.
type SchemaInfo struct {
	Version int
	Profile *domain.IndexProfile
}

// GetSchemaInfo reads the stamp from the meta bucket. A fresh file reports
// version 0 and no profile.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keySchemaVersion); v != nil {
			n, err := strconv.Atoi(string(v))
			if err != nil {
				return fmt.Errorf("corrupt schema version %q: %w", v, err)
			}
			info.Version = n
		}
		if v := meta.Get(keyProfile); v != nil {
			var p domain.IndexProfile
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("corrupt index profile: %w", err)
			}
			info.Profile = &p
		}
		return nil
	})
	return &info, err
}

// migrate stamps fresh files and refuses files from a newer build.
func (s *BoltStore) migrate() error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}
	if info.Version > CurrentSchemaVersion {
		return fmt.Errorf("index created by a newer version (schema v%d > v%d)", info.Version, CurrentSchemaVersion)
	}
	if info.Version == CurrentSchemaVersion {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for v := info.Version; v < CurrentSchemaVersion; v++ {
			if err := runMigration(tx, v, v+1); err != nil {
				return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
			}
		}
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte(strconv.Itoa(CurrentSchemaVersion)))
	})
}

func runMigration(tx *bbolt.Tx, from, to int) error {
	switch {
	case from == 0 && to == 1:
		// Buckets are created on open.
		return nil
	default:
		return fmt.Errorf("no migration path")
	}
}

func (s *BoltStore) EnsureProfile(ctx context.Context, profile domain.IndexProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyProfile); v != nil {
			var stored domain.IndexProfile
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt index profile: %w", err)
			}
			return stored.Compatible(profile)
		}
		data, err := json.Marshal(profile)
		if err != nil {
			return err
		}
		return meta.Put(keyProfile, data)
	})
}
