package mqtt

// Topic constants for the hydromind agent
const (
	// User-facing event topics (input)
	TopicDrinkEvent    = "hydration/event/drink"
	TopicReminderEvent = "hydration/event/reminder"
	TopicWeather       = "hydration/context/weather"

	// Command topics (input)
	TopicCommandSuggest = "hydration/command/suggest"
	TopicCommandReset   = "hydration/command/reset"

	// Output topics
	TopicSuggestionNew   = "hydration/suggestion/new"
	TopicScheduleCurrent = "hydration/schedule/current"
	TopicReminderSet     = "hydration/reminder/set"
	TopicInsightReport   = "hydration/insight/report"
	TopicModelTrained    = "hydration/model/trained"
	TopicModelProgress   = "hydration/model/progress"
)
