package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

var (
	bucketMeta   = []byte("meta")
	bucketChunks = []byte("chunks")

	keySchemaVersion    = []byte("schema_version")
	keyModelVersion     = []byte("model_version")
	keyDimension        = []byte("dimension")
	keyBuiltAt          = []byte("built_at")
	keyConfigHash       = []byte("config_hash")
	keyDocumentID       = []byte("document_id")
	keyDocumentChecksum = []byte("document_checksum")
	keyChunkCount       = []byte("chunk_count")
)

// BoltStore keeps one index snapshot in a single bbolt file. Every Save
// writes a fresh file next to the live one and renames it into place.
type BoltStore struct {
	path string
}

func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

func (s *BoltStore) Path() string {
	return s.path
}

type chunkRecord struct {
	Text             string               `json:"text"`
	StartWordOffset  int                  `json:"start_word_offset"`
	SourceDocumentID string               `json:"source_document_id"`
	Metadata         domain.ChunkMetadata `json:"metadata"`
}

func chunkKey(id int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Save writes snap to a temporary file and atomically replaces the live file.
func (s *BoltStore) Save(ctx context.Context, snap domain.IndexSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp-%d", s.path, time.Now().UnixNano())
	if err := s.write(ctx, tmp, snap); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

func (s *BoltStore) write(ctx context.Context, path string, snap domain.IndexSnapshot) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketMeta, err)
		}
		if err := putInfo(meta, snap.Info, len(snap.Entries)); err != nil {
			return err
		}

		chunks, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketChunks, err)
		}
		vectors, err := tx.CreateBucket(bucketVectors)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketVectors, err)
		}

		for i, entry := range snap.Entries {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			record := chunkRecord{
				Text:             entry.Chunk.Text,
				StartWordOffset:  entry.Chunk.StartWordOffset,
				SourceDocumentID: entry.Chunk.SourceDocumentID,
				Metadata:         entry.Chunk.Metadata,
			}
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}

			key := chunkKey(entry.Chunk.ID)
			if err := chunks.Put(key, data); err != nil {
				return err
			}
			if err := putVector(vectors, key, entry.Vector); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}

	if err := db.Sync(); err != nil {
		db.Close()
		return fmt.Errorf("failed to sync index: %w", err)
	}
	return db.Close()
}

func putInfo(b *bbolt.Bucket, info domain.IndexInfo, count int) error {
	values := map[string]string{
		string(keySchemaVersion):    strconv.Itoa(info.SchemaVersion),
		string(keyModelVersion):     info.ModelVersion,
		string(keyDimension):        strconv.Itoa(info.Dimension),
		string(keyBuiltAt):          info.BuiltAt.UTC().Format(time.RFC3339Nano),
		string(keyConfigHash):       info.ConfigHash,
		string(keyDocumentID):       info.DocumentID,
		string(keyDocumentChecksum): info.DocumentChecksum,
		string(keyChunkCount):       strconv.Itoa(count),
	}
	for k, v := range values {
		if err := b.Put([]byte(k), []byte(v)); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the snapshot. A missing file is reported as ErrIndexNotLoaded.
func (s *BoltStore) Load(ctx context.Context) (domain.IndexSnapshot, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return domain.IndexSnapshot{}, fmt.Errorf("%w: no index at %s, run `deptqa index` first", domain.ErrIndexNotLoaded, s.path)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return domain.IndexSnapshot{}, fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	var snap domain.IndexSnapshot
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		chunks := tx.Bucket(bucketChunks)
		vectors := tx.Bucket(bucketVectors)
		if meta == nil || chunks == nil || vectors == nil {
			return fmt.Errorf("%w: index file %s is incomplete", domain.ErrIndexNotLoaded, s.path)
		}

		info, err := readInfo(meta)
		if err != nil {
			return err
		}
		snap.Info = info
		snap.Entries = make([]domain.IndexEntry, 0, info.ChunkCount)

		// big-endian keys iterate in chunk id order
		return chunks.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record chunkRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("corrupt chunk record: %w", err)
			}
			vec, err := getVector(vectors, k)
			if err != nil {
				return err
			}

			snap.Entries = append(snap.Entries, domain.IndexEntry{
				Chunk: domain.Chunk{
					ID:               int(binary.BigEndian.Uint64(k)),
					Text:             record.Text,
					StartWordOffset:  record.StartWordOffset,
					SourceDocumentID: record.SourceDocumentID,
					Metadata:         record.Metadata,
				},
				Vector: vec,
			})
			return nil
		})
	})
	if err != nil {
		return domain.IndexSnapshot{}, err
	}

	if len(snap.Entries) != snap.Info.ChunkCount {
		return domain.IndexSnapshot{}, fmt.Errorf("%w: index lists %d chunks but holds %d",
			domain.ErrIndexNotLoaded, snap.Info.ChunkCount, len(snap.Entries))
	}
	return snap, nil
}

func readInfo(b *bbolt.Bucket) (domain.IndexInfo, error) {
	var info domain.IndexInfo
	var err error

	atoi := func(key []byte) int {
		if err != nil {
			return 0
		}
		var n int
		n, err = strconv.Atoi(string(b.Get(key)))
		return n
	}

	info.SchemaVersion = atoi(keySchemaVersion)
	info.Dimension = atoi(keyDimension)
	info.ChunkCount = atoi(keyChunkCount)
	if err != nil {
		return info, fmt.Errorf("corrupt index metadata: %w", err)
	}

	info.BuiltAt, err = time.Parse(time.RFC3339Nano, string(b.Get(keyBuiltAt)))
	if err != nil {
		return info, fmt.Errorf("corrupt index metadata: %w", err)
	}

	info.ModelVersion = string(b.Get(keyModelVersion))
	info.ConfigHash = string(b.Get(keyConfigHash))
	info.DocumentID = string(b.Get(keyDocumentID))
	info.DocumentChecksum = string(b.Get(keyDocumentChecksum))
	return info, nil
}

func (s *BoltStore) Close() error {
	return nil
}
