package api

import "net/http"

const (
	MessageSuccess = "Success"
	MessageNoData  = "No Data Found"
)

// Envelope wraps every successful payload.
type Envelope struct {
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Response   interface{} `json:"response"`
	StatusCode int         `json:"status_code"`
}

func Success(response interface{}) Envelope {
	return Envelope{Message: MessageSuccess, Response: response, StatusCode: http.StatusOK}
}

// NoData is the successful reply to a query that matched nothing.
func NoData() Envelope {
	return Envelope{Message: MessageNoData, StatusCode: http.StatusOK}
}

// Failure carries an error message in the envelope shape.
func Failure(status int, msg string) Envelope {
	return Envelope{Error: msg, StatusCode: status}
}
