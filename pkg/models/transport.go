package models

// IdentifyResponse is the per-image output of the classify command
type IdentifyResponse struct {
	Reference         string           `json:"reference"`
	Timestamp         string           `json:"timestamp"`
	ProcessingTimeSec float64          `json:"processing_time_sec"`
	Predictions       PredictionResult `json:"predictions,omitempty"`
	Error             *ErrorResponse   `json:"error,omitempty"`
}

// ErrorResponse represents an error in command output
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
