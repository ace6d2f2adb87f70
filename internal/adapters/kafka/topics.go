package kafka

// Topic definitions for Kafka event streaming
const (
	// Decision events
	TopicDecisionMade   = "decisions.made"
	TopicDecisionVetoed = "decisions.vetoed"

	// Debate events
	TopicDebateVerdict = "debates.verdicts"

	// Risk events
	TopicRiskAlert = "risk.alerts"
)
