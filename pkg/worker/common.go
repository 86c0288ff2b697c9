package worker

import "time"

// TaskQueue is the Temporal task queue name for all workflows and activities.
const TaskQueue = "adgen-backend"

// BackfillWorkflowID is the fixed workflow ID for the knowledge backfill, so
// a run started while the previous one is still going deduplicates instead of
// overlapping.
const BackfillWorkflowID = "knowledge-backfill"

// BackfillBatchSize caps how many missing items one workflow run picks up per
// collection. Anything beyond the cap waits for the next scheduled run.
const BackfillBatchSize = 100

// BackfillItemDelay is the pause between consecutive item embeddings, keeping
// the backfill inside the embedding provider's rate limits.
const BackfillItemDelay = 500 * time.Millisecond

// ActivityTimeoutStandard bounds DB and vector-store activities.
// ActivityTimeoutEmbed bounds the external embedding call.
const (
	ActivityTimeoutStandard = 1 * time.Minute
	ActivityTimeoutEmbed    = 2 * time.Minute
)

// Retry tuning shared by all backfill activities.
const (
	RetryInitialInterval    = 1 * time.Second
	RetryBackoffCoefficient = 2.0
	RetryMaximumInterval    = 30 * time.Second
	RetryMaximumAttempts    = 3
)
