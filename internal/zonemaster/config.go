package zonemaster

// DHTQueueLimit bounds the publisher's simultaneously in-flight PUTs
// (spec.md §4.G, testable property #8).
const DHTQueueLimit = 2000

// NamestoreQueueLimit is the monitor credit window (spec.md §4.G).
const NamestoreQueueLimit = 5

// DefaultReplication is the replication level spec.md §4.G step 4 pins for
// zone-master publications.
const DefaultReplication = 5

// Config tunes the publisher's queue and replication behavior.
type Config struct {
	QueueLimit    int
	MonitorCredit int
	Replication   uint32
}

// DefaultConfig returns the spec.md §4.G constants.
func DefaultConfig() Config {
	return Config{
		QueueLimit:    DHTQueueLimit,
		MonitorCredit: NamestoreQueueLimit,
		Replication:   DefaultReplication,
	}
}
