package ops

// Negative errno values used as op results and reply rvals, matching
// the abstract error taxonomy's concrete mapping onto this core's
// per-op result codes.
const (
	ENOENT      int32 = -2
	EAGAIN      int32 = -11
	ENOMEM      int32 = -12
	EINPROGRESS int32 = -115
	EOPNOTSUPP  int32 = -95
)

// isTransient reports whether result is one of the two codes the
// dispatcher never lets FAILOK suppress (§4.4 step 3, §7's Transient
// row).
func isTransient(result int32) bool {
	return result == EAGAIN || result == EINPROGRESS
}
