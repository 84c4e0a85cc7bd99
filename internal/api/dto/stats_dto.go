package dto

// JobStatsDTO mirrors stats.Summary. AverageTime is seconds, null when no
// job of the kind has both lifecycle timestamps.
type JobStatsDTO struct {
	Total       int      `json:"total"`
	Pending     int      `json:"pending"`
	Completed   int      `json:"completed"`
	Open        int      `json:"open"`
	AverageTime *float64 `json:"average_time"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	SurveyJobs     JobStatsDTO `json:"survey_jobs"`
	DownloaderJobs JobStatsDTO `json:"downloader_jobs"`
	ProcessorJobs  JobStatsDTO `json:"processor_jobs"`
}
