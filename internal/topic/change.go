package topic

import "fmt"

// ChangeKind is the kind of change made to a content file.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota + 1
	ChangeChanged
	ChangeRemoved
)

// String returns the name used in serialized change notifications.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "Added"
	case ChangeChanged:
		return "Changed"
	case ChangeRemoved:
		return "Removed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ChangeKind) MarshalText() ([]byte, error) {
	switch k {
	case ChangeAdded, ChangeChanged, ChangeRemoved:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown change kind %d", int(k))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ChangeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Added":
		*k = ChangeAdded
	case "Changed":
		*k = ChangeChanged
	case "Removed":
		*k = ChangeRemoved
	default:
		return fmt.Errorf("unknown change kind %q", string(b))
	}
	return nil
}

// Change is a notification that the topics defined by a content file changed.
type Change struct {
	ChangeType ChangeKind `json:"changeType"`
	// ContentFile is relative to the directory being observed.
	ContentFile string `json:"contentFile"`
	// Topics is nil for ChangeRemoved.
	Topics []Metadata `json:"topics,omitempty"`
}
