package analytics

type UserPatternsResponse struct {
	UserID     string        `json:"user_id"`
	PeriodDays int           `json:"period_days"`
	Patterns   *UserPatterns `json:"patterns"`
	Message    string        `json:"message,omitempty"`
}

type SummaryResponse struct {
	PeriodDays  int            `json:"period_days"`
	EventCounts map[string]int `json:"event_counts"`
	UniqueUsers int            `json:"unique_users"`
	TotalEvents int            `json:"total_events"`
}

type InsightsResponse struct {
	PeriodDays int           `json:"period_days"`
	HasData    bool          `json:"has_data"`
	Insights   *TeamInsights `json:"insights,omitempty"`
	Message    string        `json:"message,omitempty"`
}
