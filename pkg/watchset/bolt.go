package watchset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/0xmhha/dirmon/pkg/logger"
	bolt "go.etcd.io/bbolt"
)

// bucketSets maps a set name to its JSON encoding.
var bucketSets = []byte("watchsets")

// boltStore implements Store using BoltDB.
type boltStore struct {
	db     *bolt.DB
	logger logger.Logger
}

// Open opens (creating if needed) a BoltDB backed store.
func Open(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := ExpandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketSets); createErr != nil {
			return fmt.Errorf("failed to create watchsets bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log = logger.Component(log, "watchset")
	log.Debug("watch set store opened", "db_path", dbPath)

	return &boltStore{db: db, logger: log}, nil
}

// Create implements Store.Create.
func (s *boltStore) Create(set *Set) error {
	if set == nil {
		return ErrInvalidSet
	}
	if set.Name == "" {
		return ErrEmptyName
	}

	now := time.Now()
	set.Directories = normalize(set.Directories)
	set.CreatedAt = now
	set.UpdatedAt = now

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets)
		if b.Get([]byte(set.Name)) != nil {
			return ErrNameConflict
		}
		if err := put(b, set); err != nil {
			return err
		}

		s.logger.Info("watch set created",
			"name", set.Name,
			"directories", len(set.Directories))
		return nil
	})
}

// Get implements Store.Get.
func (s *boltStore) Get(name string) (*Set, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	var set *Set
	err := s.db.View(func(tx *bolt.Tx) error {
		var getErr error
		set, getErr = get(tx.Bucket(bucketSets), name)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// AddDirectories implements Store.AddDirectories.
func (s *boltStore) AddDirectories(name string, dirs ...string) (*Set, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	var updated *Set
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets)

		now := time.Now()
		set, err := get(b, name)
		switch {
		case errors.Is(err, ErrSetNotFound):
			set = &Set{Name: name, CreatedAt: now}
		case err != nil:
			return err
		}

		set.Directories = normalize(append(set.Directories, dirs...))
		set.UpdatedAt = now
		if err := put(b, set); err != nil {
			return err
		}

		s.logger.Info("watch set updated",
			"name", name,
			"directories", len(set.Directories))
		updated = set
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveDirectories implements Store.RemoveDirectories.
func (s *boltStore) RemoveDirectories(name string, dirs ...string) (*Set, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	var updated *Set
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets)

		set, err := get(b, name)
		if err != nil {
			return err
		}

		set.Directories = without(set.Directories, dirs)
		set.UpdatedAt = time.Now()
		if err := put(b, set); err != nil {
			return err
		}

		s.logger.Info("watch set updated",
			"name", name,
			"directories", len(set.Directories))
		updated = set
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete implements Store.Delete.
func (s *boltStore) Delete(name string) error {
	if name == "" {
		return ErrEmptyName
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets)
		if b.Get([]byte(name)) == nil {
			return nil
		}
		if err := b.Delete([]byte(name)); err != nil {
			return fmt.Errorf("failed to delete watch set: %w", err)
		}

		s.logger.Info("watch set deleted", "name", name)
		return nil
	})
}

// List implements Store.List. Keys are iterated in byte order, so the result
// is sorted by name.
func (s *boltStore) List() ([]*Set, error) {
	sets := make([]*Set, 0, 8)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSets).ForEach(func(k, v []byte) error {
			var set Set
			if err := json.Unmarshal(v, &set); err != nil {
				s.logger.Warn("failed to unmarshal watch set",
					"name", string(k),
					"error", err)
				return nil // Skip invalid entries.
			}
			sets = append(sets, &set)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list watch sets: %w", err)
	}
	return sets, nil
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.Debug("watch set store closed")
	return nil
}

func get(b *bolt.Bucket, name string) (*Set, error) {
	data := b.Get([]byte(name))
	if data == nil {
		return nil, ErrSetNotFound
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal watch set: %w", err)
	}
	return &set, nil
}

func put(b *bolt.Bucket, set *Set) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal watch set: %w", err)
	}
	if err := b.Put([]byte(set.Name), data); err != nil {
		return fmt.Errorf("failed to store watch set: %w", err)
	}
	return nil
}
