package domain

// Job kinds tracked by the ledger
const (
	JobKindSurvey     = "SURVEY"
	JobKindDownloader = "DOWNLOADER"
	JobKindProcessor  = "PROCESSOR"
)

// Smasher is the dataset assembly and delivery pipeline. Processor jobs
// created by the dispatcher always run it.
const (
	SmasherPipeline    = "SMASHER"
	SmasherRAMAmountMB = 4096
)

// Dataset aggregation strategies
const (
	AggregateByAll        = "ALL"
	AggregateByExperiment = "EXPERIMENT"
	AggregateBySpecies    = "SPECIES"
)

// JobKinds lists all job kinds, in stats reporting order.
var JobKinds = []string{JobKindSurvey, JobKindDownloader, JobKindProcessor}
