package zonesync

// Kind classifies an error the way §7 of the replication design
// classifies failures, so every component can decide whether to retry,
// advance the marker anyway, or escalate without re-deriving the policy.
type Kind int

const (
	// KindTransient covers network blips, remote 5xx, and log-store
	// busy errors. The surrounding loop retries after its natural
	// delay; the marker is not advanced.
	KindTransient Kind = iota
	// KindNotFound means the remote object was already gone. Treated
	// as success; the marker advances.
	KindNotFound
	// KindPermanentRemote covers 4xx responses other than 404. Logged
	// and counted, but treated as applied so one bad object can't
	// block the whole shard.
	KindPermanentRemote
	// KindParse covers malformed bucket keys or corrupt markers. Fatal
	// for the affected task; callers escalate.
	KindParse
	// KindFatal covers log-store write failures for a marker. The
	// owning worker terminates and is restarted on the next run cycle.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "Transient"
	case KindNotFound:
		return "NotFound"
	case KindPermanentRemote:
		return "PermanentRemote"
	case KindParse:
		return "Parse"
	case KindFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// SyncError is a classified error carrying an optional underlying cause.
type SyncError struct {
	kind    Kind
	message string
	cause   error
}

func (err *SyncError) Error() string {
	if err.cause != nil {
		return err.message + ": " + err.cause.Error()
	}

	return err.message
}

func (err *SyncError) Unwrap() error {
	return err.cause
}

func (err *SyncError) Kind() Kind {
	return err.kind
}

// NewError builds a classified error with no underlying cause.
func NewError(kind Kind, message string) *SyncError {
	return &SyncError{kind: kind, message: message}
}

// WrapError classifies an underlying error, preserving it for Unwrap.
func WrapError(kind Kind, message string, cause error) *SyncError {
	return &SyncError{kind: kind, message: message, cause: cause}
}

// KindOf extracts the Kind of a classified error, defaulting to
// KindTransient for anything that wasn't explicitly classified: an
// error this package doesn't recognize is treated the same as a
// network blip, which is the conservative choice since it neither
// advances a marker nor escalates a whole worker on an error nobody
// has looked at yet.
func KindOf(err error) Kind {
	var syncErr *SyncError

	if err == nil {
		return KindTransient
	}

	if se, ok := err.(*SyncError); ok {
		syncErr = se
	} else if ok := asSyncError(err, &syncErr); !ok {
		return KindTransient
	}

	return syncErr.kind
}

func asSyncError(err error, target **SyncError) bool {
	for err != nil {
		if se, ok := err.(*SyncError); ok {
			*target = se

			return true
		}

		u, ok := err.(interface{ Unwrap() error })

		if !ok {
			return false
		}

		err = u.Unwrap()
	}

	return false
}

// IsNotFound reports whether err is classified KindNotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsTransient reports whether err is classified KindTransient.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsPermanentRemote reports whether err is classified KindPermanentRemote.
func IsPermanentRemote(err error) bool {
	return KindOf(err) == KindPermanentRemote
}

// IsParse reports whether err is classified KindParse.
func IsParse(err error) bool {
	return KindOf(err) == KindParse
}

// IsFatal reports whether err is classified KindFatal.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}

// AdvancesMarker reports whether a task that failed with err should
// still be treated as applied for the purposes of marker advancement,
// per §7: NotFound and PermanentRemote both advance; Transient does
// not; Parse and Fatal are escalated by the caller instead of being
// asked this question.
func AdvancesMarker(err error) bool {
	if err == nil {
		return true
	}

	switch KindOf(err) {
	case KindNotFound, KindPermanentRemote:
		return true
	default:
		return false
	}
}