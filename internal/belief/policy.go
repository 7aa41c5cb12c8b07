package belief

// dangerClass maps a classLabel to its base severity tier. Unknown labels
// are treated as non-hostile (ThreatNone). This table is an implementation
// choice, not specified by source.
var dangerClass = map[string]int{
	"creeper":  3, // highest base severity: explosive proximity threat
	"skeleton": 2,
	"zombie":   2,
	"spider":   1,
	"enderman": 2,
}

// threatLevel recomputes ThreatLevel from the policy table keyed on
// classLabel x distBucket x visibility, per spec.md §4.C.
func threatLevel(classLabel string, distBucket int, vis Visibility) ThreatLevel {
	if vis == VisibilityLost {
		return ThreatNone
	}
	tier, known := dangerClass[classLabel]
	if !known || tier == 0 {
		return ThreatNone
	}

	// Inferred sightings are one severity step less certain than visible.
	effectiveTier := tier
	if vis == VisibilityInferred {
		effectiveTier--
	}
	if effectiveTier <= 0 {
		return ThreatNone
	}

	switch distBucket {
	case 1: // <16: close range, escalate
		switch effectiveTier {
		case 1:
			return ThreatMedium
		case 2:
			return ThreatHigh
		default:
			return ThreatCritical
		}
	case 2: // [16,64)
		switch effectiveTier {
		case 1:
			return ThreatLow
		case 2:
			return ThreatMedium
		default:
			return ThreatHigh
		}
	case 3: // >=64
		switch effectiveTier {
		case 1, 2:
			return ThreatLow
		default:
			return ThreatMedium
		}
	default: // 0: undefined distance
		return ThreatLow
	}
}
