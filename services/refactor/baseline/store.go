// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package baseline persists the Gold Standard function graph: the known-good
// snapshot refactors are verified against. One baseline exists per project;
// scanning overwrites it, verification never touches it.
package baseline

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
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/funcgraph"
)

// BadgerDB key layout for baselines.
const (
	keyPrefixGold = "refactor:gold:"
	keySuffixData = ":data"
	keySuffixMeta = ":meta"
)

// Sentinel errors for baseline conditions callers must distinguish.
var (
	// ErrNoBaseline indicates no Gold Standard exists for the project.
	// Expected on first use; run a scan to create one.
	ErrNoBaseline = errors.New("no baseline exists for project")

	// ErrCorruptBaseline indicates the stored baseline failed integrity
	// or schema checks. Fatal: the baseline cannot be trusted and must be
	// regenerated deliberately.
	ErrCorruptBaseline = errors.New("baseline is corrupt")
)

// Metadata describes a stored baseline.
type Metadata struct {
	// ProjectRoot is the absolute path of the scanned project.
	ProjectRoot string `json:"project_root"`

	// ProjectHash is SHA256(ProjectRoot)[:16], the key grouping.
	ProjectHash string `json:"project_hash"`

	// CreatedAtMilli is when the baseline was saved (Unix milliseconds UTC).
	CreatedAtMilli int64 `json:"created_at_milli"`

	// SchemaVersion is the graph serialization schema version.
	SchemaVersion string `json:"schema_version"`

	// FunctionCount and EdgeCount summarize the stored graph.
	FunctionCount int `json:"function_count"`
	EdgeCount     int `json:"edge_count"`

	// CompressedSize is the gzip payload size in bytes.
	CompressedSize int64 `json:"compressed_size"`

	// ContentHash is the SHA-256 hash of the compressed payload, checked
	// on every load.
	ContentHash string `json:"content_hash"`
}

// Store persists Gold Standard graphs in BadgerDB.
//
// Description:
//
//	The graph is stored as gzip-compressed JSON plus a metadata record.
//	Loads verify the payload hash against the metadata before
//	decompressing; any mismatch is ErrCorruptBaseline.
//
// Thread Safety:
//
//	Safe for concurrent use. BadgerDB handles its own concurrency control.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewStore creates a Store over an opened BadgerDB instance.
//
// Inputs:
//
//	db - An opened BadgerDB instance. Must not be nil. The caller owns
//	     its lifecycle.
//	logger - Logger for diagnostic output. Must not be nil.
//
// Outputs:
//
//	*Store - The configured store.
//	error - Non-nil if db or logger is nil.
func NewStore(db *badger.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Store{db: db, logger: logger}, nil
}

// Save persists a graph as the project's Gold Standard, replacing any
// previous baseline.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	projectRoot - The project root path the graph was built from.
//	g - The graph to persist. Must not be nil.
//
// Outputs:
//
//	*Metadata - Metadata of the saved baseline.
//	error - Non-nil if serialization or storage fails.
//
// Key Schema:
//
//	refactor:gold:{projectHash}:data -> gzip(JSON(SerializableGraph))
//	refactor:gold:{projectHash}:meta -> JSON(Metadata)
func (s *Store) Save(ctx context.Context, projectRoot string, g *funcgraph.FunctionGraph) (*Metadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if g == nil {
		return nil, fmt.Errorf("graph must not be nil")
	}

	sg := g.ToSerializable(projectRoot)
	jsonData, err := sg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshaling baseline: %w", err)
	}

	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(jsonData); err != nil {
		return nil, fmt.Errorf("compressing baseline: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	compressedData := compressed.Bytes()

	projectHash := ProjectHash(projectRoot)
	meta := &Metadata{
		ProjectRoot:    projectRoot,
		ProjectHash:    projectHash,
		CreatedAtMilli: time.Now().UnixMilli(),
		SchemaVersion:  funcgraph.GraphSchemaVersion,
		FunctionCount:  g.Stats.TotalFunctions,
		EdgeCount:      g.Stats.TotalCalls,
		CompressedSize: int64(len(compressedData)),
		ContentHash:    hashBytes(compressedData),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	dataKey := keyPrefixGold + projectHash + keySuffixData
	metaKey := keyPrefixGold + projectHash + keySuffixMeta

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataKey), compressedData); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set([]byte(metaKey), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing baseline to badger: %w", err)
	}

	s.logger.Info("baseline saved",
		slog.String("project_root", projectRoot),
		slog.Int("functions", meta.FunctionCount),
		slog.Int("edges", meta.EdgeCount),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Load retrieves a project's Gold Standard.
//
// Outputs:
//
//	*funcgraph.FunctionGraph - The reconstructed baseline graph.
//	*Metadata - The baseline metadata.
//	error - ErrNoBaseline when none exists; ErrCorruptBaseline when
//	        integrity, decompression, schema or reconstruction fail.
func (s *Store) Load(ctx context.Context, projectRoot string) (*funcgraph.FunctionGraph, *Metadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}

	projectHash := ProjectHash(projectRoot)
	dataKey := keyPrefixGold + projectHash + keySuffixData
	metaKey := keyPrefixGold + projectHash + keySuffixMeta

	var compressedData, metaJSON []byte
	err := s.db.View(func(txn *badger.Txn) error {
		dataItem, err := txn.Get([]byte(dataKey))
		if err != nil {
			return err
		}
		if compressedData, err = dataItem.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying data: %w", err)
		}
		metaItem, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		if metaJSON, err = metaItem.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying metadata: %w", err)
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, fmt.Errorf("project %s: %w", projectRoot, ErrNoBaseline)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading baseline: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("%w: unreadable metadata: %v", ErrCorruptBaseline, err)
	}
	if meta.ContentHash != "" && meta.ContentHash != hashBytes(compressedData) {
		return nil, nil, fmt.Errorf("%w: content hash mismatch", ErrCorruptBaseline)
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptBaseline, err)
	}
	defer gr.Close()
	jsonData, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptBaseline, err)
	}

	sg, err := funcgraph.UnmarshalGraph(jsonData)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptBaseline, err)
	}
	g, err := funcgraph.FromSerializable(sg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptBaseline, err)
	}
	return g, &meta, nil
}

// Meta returns the baseline metadata without reconstructing the graph.
func (s *Store) Meta(ctx context.Context, projectRoot string) (*Metadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	metaKey := keyPrefixGold + ProjectHash(projectRoot) + keySuffixMeta
	var metaJSON []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		metaJSON, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("project %s: %w", projectRoot, ErrNoBaseline)
	}
	if err != nil {
		return nil, fmt.Errorf("reading baseline metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("%w: unreadable metadata: %v", ErrCorruptBaseline, err)
	}
	return &meta, nil
}

// Delete removes a project's baseline. Deleting a missing baseline is
// not an error.
func (s *Store) Delete(ctx context.Context, projectRoot string) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}

	projectHash := ProjectHash(projectRoot)
	dataKey := keyPrefixGold + projectHash + keySuffixData
	metaKey := keyPrefixGold + projectHash + keySuffixMeta

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(dataKey)); err != nil && err != badger.ErrKeyNotFound {
			return fmt.Errorf("deleting data: %w", err)
		}
		if err := txn.Delete([]byte(metaKey)); err != nil && err != badger.ErrKeyNotFound {
			return fmt.Errorf("deleting metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting baseline: %w", err)
	}

	s.logger.Info("baseline deleted", slog.String("project_root", projectRoot))
	return nil
}

// ProjectHash returns SHA256(projectRoot)[:16] for use as a key prefix.
func ProjectHash(projectRoot string) string {
	h := sha256.Sum256([]byte(projectRoot))
	return hex.EncodeToString(h[:])[:16]
}

// hashBytes returns the hex-encoded SHA256 hash of a byte slice.
func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
