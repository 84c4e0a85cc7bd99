package domain

// Job is the ledger row a worker operates on.
type Job struct {
	JobID        string
	Kind         string
	PipelineName string
	RAMAmountMB  int
}

// JobMessage represents a job message from RabbitMQ
type JobMessage struct {
	JobID       string `json:"job_id"`
	Pipeline    string `json:"pipeline"`
	DeliveryTag uint64 `json:"-"`
}
