package response

// Response represents the standard API envelope
type Response struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"status_code"` // HTTP status code
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// Page wraps one page of a listing with its total count
type Page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Success:    true,
		StatusCode: statusCode,
		Data:       data,
	}
}

// Message returns a success response carrying only a message
func Message(statusCode int, msg string) Response {
	return Response{
		Success:    true,
		StatusCode: statusCode,
		Message:    msg,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, msg string) Response {
	return Response{
		Success:    false,
		StatusCode: statusCode,
		Message:    msg,
	}
}
