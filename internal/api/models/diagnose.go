package models

// DiagnoseRequest is the body of POST /diagnose. Both fields are optional.
type DiagnoseRequest struct {
	Services []string `json:"services"`
	Actions  []string `json:"actions"`
}
