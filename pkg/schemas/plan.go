package schemas

import "time"

// ProcessingPlan is a compiled job: the labeled graph and the ffmpeg
// invocation that runs it.
type ProcessingPlan struct {
	PlanID    string    `json:"plan_id"`
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`

	// GraphHash is the content hash of the terminal node, hex encoded. Equal
	// hashes mean identical graphs and identical arguments.
	GraphHash string `json:"graph_hash"`

	// Nodes lists the graph in dependency order.
	Nodes []*PlanNode `json:"nodes"`

	Filtergraph string          `json:"filtergraph,omitempty"`
	Commands    []FFmpegCommand `json:"commands"`
}

// PlanNode describes one graph node.
type PlanNode struct {
	Label string `json:"label"`
	Kind  string `json:"kind"` // input, filter, output, global, merge

	// ID is the job spec id the node was built from, when there is one.
	ID string `json:"id,omitempty"`

	Filter   string   `json:"filter,omitempty"`
	Filename string   `json:"filename,omitempty"`
	Inputs   []string `json:"inputs,omitempty"` // labels of consumed streams
}

// FFmpegCommand represents a generated FFmpeg command
type FFmpegCommand struct {
	ID          string   `json:"id"`
	Stage       string   `json:"stage"`
	Command     string   `json:"command"`
	Args        []string `json:"args"`
	Filtergraph string   `json:"filtergraph,omitempty"`
}
