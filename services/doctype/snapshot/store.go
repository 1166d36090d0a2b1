// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot persists analysis reports in BadgerDB.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/doctype/services/doctype/report"
)

// BadgerDB key prefixes for report snapshots.
const (
	keyPrefixSnap      = "doctype:snap:"
	keyPrefixSnapIndex = "doctype:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"
)

// ErrNotFound is returned when a snapshot or latest pointer does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Metadata describes a saved snapshot.
type Metadata struct {
	// SnapshotID is the unique identifier (a UUID).
	SnapshotID string `json:"snapshot_id"`

	// ProjectRoot is the directory the report covers.
	ProjectRoot string `json:"project_root"`

	// ProjectHash is SHA256(ProjectRoot)[:16] for key grouping.
	ProjectHash string `json:"project_hash"`

	// ReportHash is the report's content digest.
	ReportHash string `json:"report_hash"`

	// Generation is the analysis generation the report came from.
	Generation string `json:"generation"`

	// Label is an optional human-readable label.
	Label string `json:"label,omitempty"`

	// CreatedAtMilli is when the snapshot was saved (Unix milliseconds UTC).
	CreatedAtMilli int64 `json:"created_at_milli"`

	// CreatedAtNano orders snapshots saved within the same millisecond.
	CreatedAtNano int64 `json:"created_at_nano"`

	Summary report.Summary `json:"summary"`

	// CompressedSize is the size of the gzip-compressed JSON payload in bytes.
	CompressedSize int64 `json:"compressed_size"`

	// ContentHash is the SHA256 hash of the compressed payload.
	ContentHash string `json:"content_hash"`
}

// Store saves and loads report snapshots.
//
// Description:
//
//	Reports are stored as gzip-compressed JSON with their metadata kept
//	under a separate key for listing. Each project keeps a latest pointer
//	and at most Retain snapshots; older ones are pruned on save.
//
// Thread Safety:
//
//	Safe for concurrent use. BadgerDB handles its own concurrency control.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	retain int
	ownsDB bool
}

// Option configures a Store.
type Option func(*Store)

// WithRetain bounds the snapshots kept per project. Zero keeps all.
func WithRetain(n int) Option {
	return func(s *Store) { s.retain = n }
}

// New creates a store over an opened BadgerDB instance.
//
// Inputs:
//
//	db - An opened BadgerDB instance. Must not be nil. The caller closes it.
//	logger - Logger for diagnostic output. Must not be nil.
func New(db *badger.DB, logger *slog.Logger, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	s := &Store{db: db, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open opens (creating if needed) a BadgerDB directory and returns a store
// that closes it on Close.
func Open(dir string, logger *slog.Logger, opts ...Option) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db %s: %w", dir, err)
	}
	s, err := New(db, logger, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// Close releases the database when the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Save persists a report.
//
// Key Schema:
//
//	doctype:snap:{projectHash}:{snapshotID}:data → gzip(JSON(Report))
//	doctype:snap:{projectHash}:{snapshotID}:meta → JSON(Metadata)
//	doctype:snap:{projectHash}:latest            → snapshotID
//	doctype:snap:index:{snapshotID}              → projectHash
func (s *Store) Save(ctx context.Context, r *report.Report, label string) (*Metadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if r == nil {
		return nil, fmt.Errorf("report must not be nil")
	}

	jsonData, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}

	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(jsonData); err != nil {
		return nil, fmt.Errorf("compressing report: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	data := compressed.Bytes()

	now := time.Now()
	meta := &Metadata{
		SnapshotID:     uuid.NewString(),
		ProjectRoot:    r.ProjectRoot,
		ProjectHash:    ProjectHash(r.ProjectRoot),
		ReportHash:     r.Hash(),
		Generation:     r.Generation,
		Label:          label,
		CreatedAtMilli: now.UnixMilli(),
		CreatedAtNano:  now.UnixNano(),
		Summary:        r.Summary(),
		CompressedSize: int64(len(data)),
		ContentHash:    hashBytes(data),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(meta.ProjectHash, meta.SnapshotID), data); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set(metaKey(meta.ProjectHash, meta.SnapshotID), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		if err := txn.Set(latestKey(meta.ProjectHash), []byte(meta.SnapshotID)); err != nil {
			return fmt.Errorf("updating latest pointer: %w", err)
		}
		if err := txn.Set(indexKey(meta.SnapshotID), []byte(meta.ProjectHash)); err != nil {
			return fmt.Errorf("storing reverse index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot to badger: %w", err)
	}

	s.logger.Info("snapshot saved",
		slog.String("snapshot_id", meta.SnapshotID),
		slog.String("project_root", meta.ProjectRoot),
		slog.Int("declarations", meta.Summary.Declarations),
		slog.Int64("compressed_size", meta.CompressedSize),
	)

	if s.retain > 0 {
		if err := s.prune(ctx, meta.ProjectHash); err != nil {
			s.logger.Warn("snapshot prune failed", slog.String("project_hash", meta.ProjectHash), slog.Any("error", err))
		}
	}
	return meta, nil
}

// Load retrieves a snapshot by ID.
func (s *Store) Load(ctx context.Context, snapshotID string) (*report.Report, *Metadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}
	if snapshotID == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}
	projectHash, err := s.get(indexKey(snapshotID))
	if err != nil {
		return nil, nil, fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}
	return s.loadByKeys(projectHash, snapshotID)
}

// Latest loads the most recent snapshot of a project root.
func (s *Store) Latest(ctx context.Context, projectRoot string) (*report.Report, *Metadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}
	projectHash := ProjectHash(projectRoot)
	snapshotID, err := s.get(latestKey(projectHash))
	if err != nil {
		return nil, nil, fmt.Errorf("reading latest pointer for %s: %w", projectRoot, err)
	}
	return s.loadByKeys(projectHash, snapshotID)
}

// List returns snapshot metadata newest first. An empty projectRoot lists
// every project. limit <= 0 defaults to 100.
func (s *Store) List(ctx context.Context, projectRoot string, limit int) ([]*Metadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if limit <= 0 {
		limit = 100
	}
	prefix := keyPrefixSnap
	if projectRoot != "" {
		prefix = keyPrefixSnap + ProjectHash(projectRoot) + ":"
	}

	var results []*Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !isMetaKey(key) {
				continue
			}
			var meta Metadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				s.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	newestFirst(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a snapshot, and the latest pointer when it points at it.
func (s *Store) Delete(ctx context.Context, snapshotID string) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}
	projectHash, err := s.get(indexKey(snapshotID))
	if err != nil {
		return fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{
			dataKey(projectHash, snapshotID),
			metaKey(projectHash, snapshotID),
			indexKey(snapshotID),
		} {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		item, err := txn.Get(latestKey(projectHash))
		if err != nil {
			return nil
		}
		var current string
		_ = item.Value(func(val []byte) error {
			current = string(val)
			return nil
		})
		if current == snapshotID {
			return txn.Delete(latestKey(projectHash))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}
	s.logger.Info("snapshot deleted", slog.String("snapshot_id", snapshotID))
	return nil
}

// prune deletes the oldest snapshots of a project beyond the retain limit.
func (s *Store) prune(ctx context.Context, projectHash string) error {
	var metas []*Metadata
	prefix := keyPrefixSnap + projectHash + ":"
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			if !isMetaKey(string(it.Item().Key())) {
				continue
			}
			var meta Metadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err == nil {
				metas = append(metas, &meta)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(metas) <= s.retain {
		return nil
	}
	newestFirst(metas)
	for _, m := range metas[s.retain:] {
		if err := s.Delete(ctx, m.SnapshotID); err != nil {
			return err
		}
	}
	return nil
}

func newestFirst(metas []*Metadata) {
	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].CreatedAtNano > metas[j].CreatedAtNano
	})
}

func (s *Store) loadByKeys(projectHash, snapshotID string) (*report.Report, *Metadata, error) {
	var data, metaJSON []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(projectHash, snapshotID))
		if err != nil {
			return fmt.Errorf("reading data for %s: %w", snapshotID, notFound(err))
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying data for %s: %w", snapshotID, err)
		}
		item, err = txn.Get(metaKey(projectHash, snapshotID))
		if err != nil {
			return fmt.Errorf("reading metadata for %s: %w", snapshotID, notFound(err))
		}
		if metaJSON, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying metadata for %s: %w", snapshotID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", snapshotID, err)
	}
	if actual := hashBytes(data); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s", snapshotID, meta.ContentHash, actual)
	}

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", snapshotID, err)
	}
	defer gr.Close()
	jsonData, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("reading decompressed data for %s: %w", snapshotID, err)
	}

	var r report.Report
	if err := json.Unmarshal(jsonData, &r); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling report for %s: %w", snapshotID, err)
	}
	return &r, &meta, nil
}

func (s *Store) get(key []byte) (string, error) {
	var val string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return notFound(err)
		}
		return item.Value(func(v []byte) error {
			val = string(v)
			return nil
		})
	})
	return val, err
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// ProjectHash returns SHA256(projectRoot)[:16] for use as a key prefix.
func ProjectHash(projectRoot string) string {
	h := sha256.Sum256([]byte(projectRoot))
	return hex.EncodeToString(h[:])[:16]
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func dataKey(projectHash, id string) []byte {
	return []byte(keyPrefixSnap + projectHash + ":" + id + keySuffixData)
}

func metaKey(projectHash, id string) []byte {
	return []byte(keyPrefixSnap + projectHash + ":" + id + keySuffixMeta)
}

func latestKey(projectHash string) []byte {
	return []byte(keyPrefixSnap + projectHash + keySuffixLatest)
}

func indexKey(id string) []byte {
	return []byte(keyPrefixSnapIndex + id)
}

func isMetaKey(key string) bool {
	return len(key) > len(keySuffixMeta) && key[len(key)-len(keySuffixMeta):] == keySuffixMeta
}
