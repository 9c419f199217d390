// Package shard maps routing keys onto a fixed number of settlement shards
// and names the broker resources that belong to each shard.
package shard

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Calculate returns the shard in [0, count) for key.
//
// The shard is the first four bytes of SHA-256(key) read as a little-endian
// signed 32-bit integer, masked to non-negative, modulo count. Every producer
// and consumer must agree on this mapping, so it must never change for a
// live topology. count must be positive.
func Calculate(key string, count int) int {
	if count <= 0 {
		panic(fmt.Sprintf("shard: count must be positive, got %d", count))
	}
	sum := sha256.Sum256([]byte(key))
	v := int32(binary.LittleEndian.Uint32(sum[:4])) & math.MaxInt32
	return int(v) % count
}

// ForOwner returns the shard for an owner id. All transactions of one owner
// land on the same shard, which serializes their settlement.
func ForOwner(ownerID int64, count int) int {
	return Calculate(OwnerKey(ownerID), count)
}

// OwnerKey is the routing key input for an owner: its decimal id.
func OwnerKey(ownerID int64) string {
	return strconv.FormatInt(ownerID, 10)
}

// Router binds the shard count and the naming bases of one topology.
type Router struct {
	Count          int
	RoutingKeyBase string
	QueueBase      string
}

// NewRouter returns a Router; count must be positive.
func NewRouter(count int, routingKeyBase, queueBase string) (*Router, error) {
	if count <= 0 {
		return nil, fmt.Errorf("shard count must be positive, got %d", count)
	}
	return &Router{Count: count, RoutingKeyBase: routingKeyBase, QueueBase: queueBase}, nil
}

// Shard returns the shard for key.
func (r *Router) Shard(key string) int {
	return Calculate(key, r.Count)
}

// RoutingKey returns the routing key for key.
func (r *Router) RoutingKey(key string) string {
	return RoutingKey(r.RoutingKeyBase, r.Shard(key))
}

// Shards returns 0..Count-1.
func (r *Router) Shards() []int {
	out := make([]int, r.Count)
	for i := range out {
		out[i] = i
	}
	return out
}
