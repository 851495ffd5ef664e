package jobs

// QueueDefault is the default queue name for background jobs.
const QueueDefault = "default"
