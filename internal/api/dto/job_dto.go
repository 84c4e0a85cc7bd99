package dto

// ListJobsRequest is the allow-listed query surface of GET /api/v1/jobs.
type ListJobsRequest struct {
	Kind     string `form:"kind" binding:"omitempty,oneof=SURVEY DOWNLOADER PROCESSOR"`
	Pipeline string `form:"pipeline"`
	Success  *bool  `form:"success"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ListJobsResponse pages jobs with a keyset cursor.
type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// JobDTO is the ledger row representation returned by the API.
type JobDTO struct {
	JobID        string  `json:"job_id"`
	Kind         string  `json:"kind"`
	PipelineName string  `json:"pipeline_name"`
	RAMAmountMB  int     `json:"ram_amount_mb"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Success      *bool   `json:"success"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}
