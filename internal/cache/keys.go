package cache

import "time"

const (
	// Mirror of a user's reserved-slot list: reserved_slots:{email} -> JSON array
	KeyReservedSlots = "reserved_slots:%s"
)

var (
	// The mirror only bridges cold starts and store outages; the durable
	// store supersedes it as soon as it answers, so a bounded TTL is fine.
	TTLReservedSlots = 30 * 24 * time.Hour
)
