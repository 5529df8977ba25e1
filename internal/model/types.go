package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Failure kinds reported through Result.ExitCode. Positive codes mean
// converged at that iteration, zero means the iteration budget ran out.
const (
	ExitMaxIterations    = 0
	ExitNonFiniteGrad    = -1
	ExitLineSearchFailed = -2
	ExitDiverged         = -3
)

// Result is the terminal record of one optimization run.
type Result struct {
	Potentials *Potentials
	ExitCode   int
	Iterations int
	FinalValue float64
	Message    string
}

func (r Result) Converged() bool {
	return r.ExitCode > 0
}

func (r Result) Failed() bool {
	return r.ExitCode < 0
}

// TrajectoryPoint is one step of the optimization state trajectory.
type TrajectoryPoint struct {
	Iteration int     `json:"iteration"`
	Value     float64 `json:"value"`
	GradNorm  float64 `json:"grad_norm"`
	XNorm     float64 `json:"x_norm"`
	Alpha     float64 `json:"alpha"`
}

// RunRecord summarizes one fit for persistence and listing.
type RunRecord struct {
	VersionedRecord
	ID           string  `json:"id"`
	CreatedAtUTC string  `json:"created_at_utc"`
	Objective    string  `json:"objective"`
	Algorithm    string  `json:"algorithm"`
	NumSeqs      int     `json:"num_seqs"`
	NumCols      int     `json:"num_cols"`
	Neff         float64 `json:"neff"`
	ExitCode     int     `json:"exit_code"`
	Iterations   int     `json:"iterations"`
	FinalValue   float64 `json:"final_value"`
}
