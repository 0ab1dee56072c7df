package capability

// Rating is a coarse verdict on a Cpk or Ppk value.
type Rating int

const (
	Unknown Rating = iota
	NotCapable
	Marginal
	Capable
)

// Conventional thresholds for a capable and a marginal process.
const (
	CapableThreshold  = 1.33
	MarginalThreshold = 1.00
)

func (r Rating) String() string {
	switch r {
	case Capable:
		return "capable"
	case Marginal:
		return "marginal"
	case NotCapable:
		return "not capable"
	default:
		return "unknown"
	}
}

// Rate classifies an index value. Undefined values rate Unknown.
func Rate(v Value) Rating {
	switch {
	case !v.Defined:
		return Unknown
	case v.Float >= CapableThreshold:
		return Capable
	case v.Float >= MarginalThreshold:
		return Marginal
	default:
		return NotCapable
	}
}
