// Package routing implements the neighbour table: a binary Kademlia table
// over the 512-bit identity-hash space, bucket capacity B=8, with a
// liveness-gated replacement policy, a closeness oracle, and per-table hold
// counts expressing interest in keeping a peer connected.
//
// Structurally this mirrors dep2p-go-dep2p's internal/discovery/dht/routing.go
// (KBucket with a front-most-recent node list plus a replacement cache,
// BucketIndex/CommonPrefixLen/XORDistance helpers in xor.go), generalized
// from that teacher's 256-bit NodeID space to the 512-bit HashKey space this
// overlay uses, and from its LRU-style replace to the spec's
// liveness-gated replace rule (only replace the least-recently-active
// entry if it has failed liveness checks).
package routing
