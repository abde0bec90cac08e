package api

import (
	"math/rand/v2"
	"os"
	"strconv"
	"time"
)

// SimpleResponse is the body of every /rest endpoint. It identifies which
// replica and which OS thread served the request.
type SimpleResponse struct {
	HostString    string `json:"hostString"`
	PathString    string `json:"pathString"`
	TimeString    string `json:"timeString"`
	RandomInteger int    `json:"randomInteger"`
	ThreadID      string `json:"threadID"`
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func newSimpleResponse(host, path string) SimpleResponse {
	return SimpleResponse{
		HostString:    host,
		PathString:    path,
		TimeString:    time.Now().Format(time.RFC3339Nano),
		RandomInteger: rand.IntN(1_000_000),
		ThreadID:      strconv.Itoa(threadID()),
	}
}
