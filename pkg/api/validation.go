package api

// ValidateChatRequest checks a decoded ChatRequest. It returns an *APIError
// describing the failure, or nil if the request is valid. An empty message
// is accepted and forwarded as is.
func ValidateChatRequest(req *ChatRequest) *APIError {
	if req == nil || req.Message == nil {
		return NewInvalidRequestError("message", "field 'message' is required and must be a string")
	}
	return nil
}
