package activity

// Result codes. ResultOK is negative so user-defined codes can grow
// upward from ResultFirstUser.
const (
	ResultOK        = -1
	ResultCanceled  = 0
	ResultFirstUser = 1
)

// Result carries a finishing activity's outcome back to its caller.
type Result struct {
	Code int                    `json:"code"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// ResultFunc receives a result on the UI thread. Delivery happens
// strictly after the finishing activity's OnDestroy and strictly before
// the revealed activity's OnResume, at most once per launch. An
// activity destroyed without finishing delivers nothing.
type ResultFunc func(Result)

// pendingResult is one entry in the navigator's pending-result table,
// keyed by launch ID.
type pendingResult struct {
	fn       ResultFunc
	launcher *Base // nil when launched from outside any activity
}
