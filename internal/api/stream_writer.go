package api

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// sseWriter emits generation progress as server-sent events: one "token"
// event per generated token, then a terminal "done" or "error" event.
type sseWriter struct {
	w     io.Writer
	flush func()
}

// streamWriterFor returns nil unless the request asked to stream and the
// response writer supports flushing; a nil writer means plain JSON.
func streamWriterFor(c *echo.Context, req GenerateRequest) *sseWriter {
	if req.Stream == nil || !*req.Stream {
		return nil
	}
	res := c.Response()
	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return nil
	}
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: res, flush: flusher.Flush}
}

func (s *sseWriter) emitToken(seq int, token string) {
	_ = s.writeEvent(StreamEvent{Type: "token", Seq: seq, Token: token})
}

// finish emits the terminal event. A generation error is reported in-band;
// the HTTP status was already committed when streaming began.
func (s *sseWriter) finish(resp *GenerateResponse, err error) error {
	if err != nil {
		return s.writeEvent(StreamEvent{Type: "error", Error: err.Error()})
	}
	return s.writeEvent(StreamEvent{Type: "done", Response: resp})
}

func (s *sseWriter) writeEvent(ev StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flush()
	return nil
}
