package panoptic

const (
	// Run reports emitted by the scheduler after every pipeline run.
	TOPIC_EXECUTED_RUN = "topic.executed_run"
)

// Datadog metrics emitted by the reporter.
const (
	DDOG_RUN_COUNTER           = "postwall.pipeline.run"
	DDOG_POSTS_FETCHED_COUNTER = "postwall.pipeline.posts.fetched"
	DDOG_POSTS_NEW_COUNTER     = "postwall.pipeline.posts.new"
	DDOG_POSTS_DUP_COUNTER     = "postwall.pipeline.posts.duplicate"
	DDOG_FAILED_HANDLE_COUNTER = "postwall.pipeline.handle.failed"
	DDOG_RUN_DURATION          = "postwall.pipeline.run.duration"
)
