// Package mapred models the map/shuffle/reduce framework boundary and ships a
// local in-process runner so jobs can execute without a cluster
// Keys and values are text on both sides of the shuffle
package mapred

import (
	"context"
	"hash/fnv"
)

// KeyValue is one intermediate or output pair
type KeyValue struct {
	Key   string
	Value string
}

// Emitter receives pairs from map and reduce functions
type Emitter interface {
	Emit(key, value string) error
}

// EmitFunc adapts a function to Emitter
type EmitFunc func(key, value string) error

// Emit calls f
func (f EmitFunc) Emit(key, value string) error { return f(key, value) }

// Mapper handles one input record of a map task
type Mapper interface {
	Map(ctx context.Context, offset int64, raw []byte, emit Emitter) error
}

// MapperFunc adapts a function to Mapper
type MapperFunc func(ctx context.Context, offset int64, raw []byte, emit Emitter) error

// Map calls f
func (f MapperFunc) Map(ctx context.Context, offset int64, raw []byte, emit Emitter) error {
	return f(ctx, offset, raw, emit)
}

// Reducer handles one key group of a reduce task
type Reducer interface {
	Reduce(ctx context.Context, key string, values []string, emit Emitter) error
}

// ReducerFunc adapts a function to Reducer
type ReducerFunc func(ctx context.Context, key string, values []string, emit Emitter) error

// Reduce calls f
func (f ReducerFunc) Reduce(ctx context.Context, key string, values []string, emit Emitter) error {
	return f(ctx, key, values, emit)
}

// BatchReducer is implemented by reducers that can process a whole partition
// at once; output must follow the order of groups
type BatchReducer interface {
	Reducer
	ReduceBatch(ctx context.Context, groups []Group, emit Emitter) error
}

// RecordSource yields raw input records; Next returns io.EOF when drained
type RecordSource interface {
	Next() (offset int64, raw []byte, err error)
}

// Partition maps key onto one of n reduce partitions with 32 bit FNV-1a
func Partition(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()&0x7fffffff) % n
}
