package blocking

import "strings"

// OperationType selects the mechanism used to hold the caller.
type OperationType int

const (
	Sleep OperationType = iota
	FileIO
	NetworkIO
	Mixed
)

var operationNames = [...]string{
	Sleep:     "SLEEP",
	FileIO:    "FILE_IO",
	NetworkIO: "NETWORK_IO",
	Mixed:     "MIXED",
}

// concreteOperations are the types Mixed may resolve to.
var concreteOperations = [...]OperationType{Sleep, FileIO, NetworkIO}

func (o OperationType) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return "UNKNOWN"
	}
	return operationNames[o]
}

// ParseOperationType matches s against the operation tags ignoring case.
// The second result is false when s matched nothing, in which case Sleep is
// returned and the caller decides how loudly to complain.
func ParseOperationType(s string) (OperationType, bool) {
	upper := strings.ToUpper(s)
	for i, name := range operationNames {
		if name == upper {
			return OperationType(i), true
		}
	}
	return Sleep, false
}

// ConcreteOperations returns the operation types that map to a strategy.
func ConcreteOperations() []OperationType {
	ops := concreteOperations
	return ops[:]
}
