package storage

import (
	"errors"
	"strings"
)

// Storage failure taxonomy. Substrate implementations wrap their own errors in one of these.
var (
	// ErrNotFound indicates the key holds no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable indicates the substrate is absent or failing; the store degrades to memory.
	ErrUnavailable = errors.New("storage: substrate unavailable")
	// ErrCorruptPayload indicates a stored value failed to parse or validate.
	ErrCorruptPayload = errors.New("storage: corrupt payload")
	// ErrQuotaExceeded indicates the substrate rejected a write for lack of space.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrInvalidInput indicates a value of the wrong shape was supplied or stored.
	ErrInvalidInput = errors.New("storage: invalid input")
)

// Kind names a storage failure class for logs and metrics.
type Kind string

// Failure kinds returned by Classify.
const (
	KindNone        Kind = "ok"
	KindNotFound    Kind = "not_found"
	KindUnavailable Kind = "unavailable"
	KindCorrupt     Kind = "corrupt"
	KindQuota       Kind = "quota_exceeded"
	KindInvalid     Kind = "invalid_input"
	KindUnknown     Kind = "unknown"
)

// Classify maps err onto the storage taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuota
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrCorruptPayload):
		return KindCorrupt
	case errors.Is(err, ErrInvalidInput):
		return KindInvalid
	default:
		return KindUnknown
	}
}

func isOutOfMemory(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.HasPrefix(msg, "OOM") || strings.Contains(msg, "QUOTA")
}
