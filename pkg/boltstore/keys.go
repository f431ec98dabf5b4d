package boltstore

import "encoding/binary"

// Bucket names. The three buckets are the three sections of a dump.
var (
	bucketObjects       = []byte("objects")
	bucketServerConfig  = []byte("server_config")
	bucketObjectsConfig = []byte("objects_config")
)

var allBuckets = [][]byte{bucketObjects, bucketServerConfig, bucketObjectsConfig}

// indexToKey converts a table index to an 8-byte big-endian key so that
// bbolt's byte ordering matches table order.
func indexToKey(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

// keyToIndex converts an 8-byte big-endian key back to a table index.
func keyToIndex(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
