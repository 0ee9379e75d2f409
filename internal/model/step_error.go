package model

// StepError records a scenario step that the engine rejected.
type StepError struct {
	Line   int    `json:"line"`
	Op     string `json:"op"`
	Code   Code   `json:"code"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}
