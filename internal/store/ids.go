package store

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// IDGenerator produces record ids. Implementations must not repeat an id
// for the lifetime of the process.
type IDGenerator func() string

// UUID generates random v4 UUIDs.
func UUID() string { return uuid.NewString() }

// KSUID generates time-sortable KSUIDs.
func KSUID() string { return ksuid.New().String() }

// Snowflake returns a generator of snowflake ids for the given node.
func Snowflake(node int64) (IDGenerator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return func() string { return n.Generate().String() }, nil
}

// NewIDGenerator resolves an ID_STRATEGY value: uuid (default), ksuid or snowflake.
func NewIDGenerator(strategy string, node int64) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", "uuid":
		return UUID, nil
	case "ksuid":
		return KSUID, nil
	case "snowflake":
		return Snowflake(node)
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
}
