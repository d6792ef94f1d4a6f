package entitlement

// Partition selects which store partition an entitlement record lands in.
// The split is an artifact of incremental rollout: the first platform
// shipped against a bare code table, later platforms share a generic table
// with an explicit platform column. The split must survive until the store
// itself is redesigned.
type Partition int

const (
	// PartitionLegacy is the platform-implicit table.
	PartitionLegacy Partition = iota
	// PartitionGeneric is the table carrying an explicit platform column.
	PartitionGeneric
)

func (p Partition) String() string {
	if p == PartitionLegacy {
		return "legacy"
	}
	return "generic"
}

// Known platform identifiers.
const (
	PlatformXiaohongshu = "xiaohongshu"
	PlatformWeread      = "weread"
	PlatformFlomo       = "flomo"
	PlatformJike        = "jike"
)

// partitionByPlatform is the routing table. Adding a platform to either
// partition is a one-line change here.
var partitionByPlatform = map[string]Partition{
	PlatformXiaohongshu: PartitionLegacy,
	PlatformWeread:      PartitionGeneric,
	PlatformFlomo:       PartitionGeneric,
	PlatformJike:        PartitionGeneric,
}

// PartitionFor routes a platform to its store partition. Unknown platforms
// go to the generic partition, which accepts any platform value.
func PartitionFor(platform string) Partition {
	if partition, ok := partitionByPlatform[platform]; ok {
		return partition
	}
	return PartitionGeneric
}
