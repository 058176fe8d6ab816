package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	bucketVectors = []byte("vectors")
)

type storedVector struct {
	Vector []float32 `json:"v"`
}

func putVector(b *bbolt.Bucket, key []byte, vector []float32) error {
	data, err := json.Marshal(storedVector{Vector: vector})
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func getVector(b *bbolt.Bucket, key []byte) ([]float32, error) {
	data := b.Get(key)
	if data == nil {
		return nil, fmt.Errorf("missing vector for chunk key %x", key)
	}

	var stored storedVector
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("corrupt vector for chunk key %x: %w", key, err)
	}
	return stored.Vector, nil
}
