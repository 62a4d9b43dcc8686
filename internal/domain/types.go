package domain

// Response standardizes API responses.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

// OffsetPagination is the pagination block for page/limit requests.
type OffsetPagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	Limit      int   `json:"limit"`
	HasMore    bool  `json:"hasMore"`
}

// CursorPagination is the pagination block for cursor requests. Next and
// Previous are opaque tokens, absent on an empty page.
type CursorPagination struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	HasMore  bool    `json:"hasMore"`
	Count    int     `json:"count"`
}

// ListMeta carries query telemetry for offset-mode responses.
type ListMeta struct {
	ExecutionTime int64 `json:"executionTime"` // milliseconds
	ResultCount   int   `json:"resultCount"`
}
