package pool

// Job is one chunk of work for an execution unit. Ownership of Payload
// transfers to the pool at dispatch; the dispatcher must not reuse or
// mutate the buffer afterward.
type Job struct {
	ChunkIndex int
	Payload    []byte
	Mono       bool
	Options    Options
}

// Options selects the optional mastering stages applied while encoding.
type Options struct {
	Gate     bool
	Clarity  bool
	Tonal    bool
	SoftClip bool
}

// ChunkResult is the mastered artifact for one chunk. Produced exactly once
// per successful job.
type ChunkResult struct {
	ChunkIndex int
	Payload    []byte
	Report     ChunkReport
}

// ChunkReport carries the numbers the mastering passes measured for one
// chunk: source loudness before normalization and program level before
// encoding.
type ChunkReport struct {
	InputIntegrated    float64
	InputTruePeak      float64
	InputLoudnessRange float64
	RMSLevel           float64
}

// ProgressUpdate tags a unit progress message with its origin. Delivery is
// best-effort; updates are dropped rather than ever blocking completion.
type ProgressUpdate struct {
	Unit    int
	Chunk   int
	Stage   string
	Message string
}

type requestKind int

const (
	requestInit requestKind = iota
	requestProcess
)

// unitRequest travels coordinator -> unit.
type unitRequest struct {
	kind requestKind
	job  Job
}

type responseKind int

const (
	responseReady responseKind = iota
	responseSetupFailed
	responseProgress
	responseDone
	responseFailed
	responseCrashed
)

// unitResponse travels unit -> coordinator. One tagged union per message,
// decoded exactly once at the coordinator boundary.
type unitResponse struct {
	kind    responseKind
	unitID  int
	chunk   int
	result  ChunkResult
	err     error
	reason  string
	stage   string
	message string
}

type commandKind int

const (
	commandDispatch commandKind = iota
	commandTerminate
)

// command travels caller -> coordinator.
type command struct {
	kind   commandKind
	job    Job
	ticket *Ticket
	done   chan struct{}
}
