// Package topic extracts DocFX topic metadata from content files.
package topic

// Topic type names as written by DocFX.
const (
	KindConceptual          = "Conceptual"
	KindManagedReference    = "Reference.Managed"
	KindPowerShellReference = "Reference.PowerShell"
)

// Metadata describes one documentation topic.
type Metadata struct {
	// UID is the project-unique topic identifier.
	UID string `json:"uid"`
	// Type is the DocFX topic type (Conceptual, Reference.Managed, ...).
	Type string `json:"type"`
	// SourceFile is the content file that defines the topic.
	SourceFile string `json:"sourceFile"`
	Name       string `json:"name,omitempty"`
	Title      string `json:"title,omitempty"`
	// MemberType is the declared kind of a reference item (Class, Method, ...).
	MemberType   string `json:"memberType,omitempty"`
	DetailedType Type   `json:"detailedType,omitempty"`
}

// Type is the well-known category of a topic, used to filter topic lists.
type Type int

const (
	TypeConceptual Type = iota + 1
	TypeNamespace
	TypeType
	TypeProperty
	TypeMethod
	TypePowerShellCmdlet
	TypeOther
)

// String returns a human-readable representation of the topic type.
func (t Type) String() string {
	switch t {
	case TypeConceptual:
		return "Conceptual"
	case TypeNamespace:
		return "Namespace"
	case TypeType:
		return "Type"
	case TypeProperty:
		return "Property"
	case TypeMethod:
		return "Method"
	case TypePowerShellCmdlet:
		return "PowerShellCmdlet"
	case TypeOther:
		return "Other"
	default:
		return "unknown"
	}
}

// Classify maps a topic's type and member type onto a Type.
func Classify(m Metadata) Type {
	switch m.Type {
	case KindConceptual:
		return TypeConceptual
	case KindManagedReference:
		switch m.MemberType {
		case "Namespace":
			return TypeNamespace
		case "Class", "Struct", "Interface", "Delegate":
			return TypeType
		case "Property":
			return TypeProperty
		case "Method", "Constructor":
			return TypeMethod
		default:
			return TypeOther
		}
	case KindPowerShellReference:
		if m.MemberType == "Cmdlet" {
			return TypePowerShellCmdlet
		}
		return TypeOther
	default:
		return TypeOther
	}
}
