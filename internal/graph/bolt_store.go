package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/featurekg/internal/errors"
)

var (
	nodesBucket         = []byte("nodes")
	relationshipsBucket = []byte("relationships")
)

// BoltStore is a MemoryStore whose mutations are written through to a
// single bbolt file, so a graph survives restarts without a Neo4j server.
type BoltStore struct {
	*MemoryStore
	db *bolt.DB
}

type boltRecord[T any] struct {
	Seq  uint64 `json:"seq"`
	Item T      `json:"item"`
}

// OpenBoltStore opens (or creates) the graph file at path and loads it.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.FileSystemError(err, "failed to create graph directory")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.ConnectionError(err, fmt.Sprintf("failed to open graph file %s", path))
	}

	s := &BoltStore{MemoryStore: NewMemoryStore(), db: db}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	s.MemoryStore.persist = s
	return s, nil
}

func (s *BoltStore) load() error {
	var nodes []boltRecord[Node]
	var rels []boltRecord[Relationship]

	err := s.db.Update(func(tx *bolt.Tx) error {
		nb, err := tx.CreateBucketIfNotExists(nodesBucket)
		if err != nil {
			return err
		}
		rb, err := tx.CreateBucketIfNotExists(relationshipsBucket)
		if err != nil {
			return err
		}
		if err := nb.ForEach(func(_, v []byte) error {
			var rec boltRecord[Node]
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			nodes = append(nodes, rec)
			return nil
		}); err != nil {
			return err
		}
		return rb.ForEach(func(_, v []byte) error {
			var rec boltRecord[Relationship]
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			rels = append(rels, rec)
			return nil
		})
	})
	if err != nil {
		return errors.DatabaseError(err, "failed to load graph file")
	}

	// Insertion order is the creation sequence, not key order.
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Seq < nodes[j].Seq })
	sort.Slice(rels, func(i, j int) bool { return rels[i].Seq < rels[j].Seq })

	s.MemoryStore.mu.Lock()
	defer s.MemoryStore.mu.Unlock()
	for _, rec := range nodes {
		if rec.Item.Properties == nil {
			rec.Item.Properties = Properties{}
		}
		s.MemoryStore.restoreNode(rec.Item, rec.Seq)
	}
	for _, rec := range rels {
		if rec.Item.Properties == nil {
			rec.Item.Properties = Properties{}
		}
		s.MemoryStore.restoreRelationship(rec.Item, rec.Seq)
	}
	return nil
}

func (s *BoltStore) putNode(n Node, seq uint64) error {
	return s.put(nodesBucket, n.ID, boltRecord[Node]{Seq: seq, Item: n})
}

func (s *BoltStore) putRelationship(r Relationship, seq uint64) error {
	return s.put(relationshipsBucket, r.ID, boltRecord[Relationship]{Seq: seq, Item: r})
}

func (s *BoltStore) deleteNode(id string) error {
	return s.remove(nodesBucket, id)
}

func (s *BoltStore) deleteRelationship(id string) error {
	return s.remove(relationshipsBucket, id)
}

func (s *BoltStore) put(bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *BoltStore) remove(bucket []byte, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Describe(ctx context.Context) (ServerInfo, error) {
	return ServerInfo{Name: "featurekg-bolt", Edition: "embedded", Version: []string{s.db.Path()}}, nil
}

func (s *BoltStore) HealthCheck(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(nodesBucket) == nil {
			return errors.ConnectionError(nil, "graph file is missing its node bucket")
		}
		return nil
	})
}

// Close flushes and releases the graph file
func (s *BoltStore) Close(ctx context.Context) error {
	return s.db.Close()
}
