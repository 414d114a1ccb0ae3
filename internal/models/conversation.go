package models

import "time"

// Thread is a conversation thread id recorded locally after the backend created it.
type Thread struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

// MessageResponse carries the reply text and the base64 audio, null when synthesis failed.
type MessageResponse struct {
	Reply string  `json:"reply"`
	Audio *string `json:"audio"`
}

type StartResponse struct {
	ThreadID string `json:"thread_id"`
}

type ThreadsResponse struct {
	ThreadIDs []string `json:"thread_ids"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
