package config

const (
	// TopicLiveStatus is the NSQ topic the external Instagram checker
	// publishes liveness transitions to.
	TopicLiveStatus = "live.status"

	// ChannelWorker is the consumer channel shared by worker instances.
	ChannelWorker = "worker"
)
