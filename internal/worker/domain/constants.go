package domain

// Pipeline names the worker knows how to run
const (
	PipelineSmasher = "SMASHER"
)
