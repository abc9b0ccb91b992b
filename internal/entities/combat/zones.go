package combat

// Zone is one of the five body zones an attack can target or a block can
// cover.
type Zone string

// Body zones
const (
	ZoneHead  Zone = "head"
	ZoneChest Zone = "chest"
	ZoneBelly Zone = "belly"
	ZoneLegs  Zone = "legs"
	ZoneFeet  Zone = "feet"
)

// AllZones lists the zones in top-to-bottom order.
var AllZones = []Zone{ZoneHead, ZoneChest, ZoneBelly, ZoneLegs, ZoneFeet}

// BlockPairs are the five valid adjacent block pairs. Adjacency wraps:
// a low guard covers feet and head is paired with feet when crouching.
var BlockPairs = [][2]Zone{
	{ZoneHead, ZoneChest},
	{ZoneChest, ZoneBelly},
	{ZoneBelly, ZoneLegs},
	{ZoneLegs, ZoneFeet},
	{ZoneFeet, ZoneHead},
}

// DefaultBlockPair is the conservative guard used for forced-passive moves
// and auto-repaired intents.
var DefaultBlockPair = [2]Zone{ZoneHead, ZoneChest}

// IsValidZone reports whether z is a known body zone.
func IsValidZone(z Zone) bool {
	for _, known := range AllZones {
		if z == known {
			return true
		}
	}
	return false
}

// IsValidBlockPair reports whether the given zones form one of the five
// valid block pairs, in either order.
func IsValidBlockPair(zones []Zone) bool {
	if len(zones) != 2 {
		return false
	}
	for _, pair := range BlockPairs {
		if (zones[0] == pair[0] && zones[1] == pair[1]) ||
			(zones[0] == pair[1] && zones[1] == pair[0]) {
			return true
		}
	}
	return false
}

// ZonesOverlap reports whether any attacked zone is covered by the block.
func ZonesOverlap(attack, block []Zone) bool {
	for _, a := range attack {
		for _, b := range block {
			if a == b {
				return true
			}
		}
	}
	return false
}
