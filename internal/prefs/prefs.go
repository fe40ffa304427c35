// Package prefs keeps small per-shopper UI state in a local bbolt file:
// dismissed promo banners and recent searches. This data is cosmetic,
// so it stays out of the relational schema and survives restarts
// without migrations.
package prefs

import (
	"path"
	"strings"

	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	bucketDismissed = "dismissed_discounts"
	bucketSearches  = "recent_searches"

	maxRecentSearches = 10
)

// Store wraps the bbolt handle.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) prefs.db under workdir.
func NewStore(workdir string) (*Store, error) {
	db, err := bolt.Open(path.Join(workdir, "prefs.db"), 0644, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketDismissed)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSearches))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DismissDiscount records that the owner closed the banner for a code.
func (s *Store) DismissDiscount(ownerKey, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketDismissed))
		codes := decodeList(b.Get([]byte(ownerKey)))
		for _, c := range codes {
			if c == code {
				return nil
			}
		}
		codes = append(codes, code)
		return b.Put([]byte(ownerKey), encodeList(codes))
	})
}

// DismissedDiscounts returns the codes the owner has dismissed.
func (s *Store) DismissedDiscounts(ownerKey string) ([]string, error) {
	var codes []string
	err := s.db.View(func(tx *bolt.Tx) error {
		codes = decodeList(tx.Bucket([]byte(bucketDismissed)).Get([]byte(ownerKey)))
		return nil
	})
	return codes, err
}

// ResetDismissed clears the owner's dismissed set.
func (s *Store) ResetDismissed(ownerKey string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDismissed)).Delete([]byte(ownerKey))
	})
}

// RecordSearch pushes a query onto the owner's recent-search list,
// newest first, deduplicated, capped at maxRecentSearches.
func (s *Store) RecordSearch(ownerKey, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSearches))
		old := decodeList(b.Get([]byte(ownerKey)))
		fresh := []string{query}
		for _, q := range old {
			if !strings.EqualFold(q, query) {
				fresh = append(fresh, q)
			}
			if len(fresh) >= maxRecentSearches {
				break
			}
		}
		return b.Put([]byte(ownerKey), encodeList(fresh))
	})
}

// RecentSearches returns the owner's recent queries, newest first.
func (s *Store) RecentSearches(ownerKey string) ([]string, error) {
	var queries []string
	err := s.db.View(func(tx *bolt.Tx) error {
		queries = decodeList(tx.Bucket([]byte(bucketSearches)).Get([]byte(ownerKey)))
		return nil
	})
	return queries, err
}

func encodeList(items []string) []byte {
	data, _ := json.Marshal(items)
	return data
}

func decodeList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
