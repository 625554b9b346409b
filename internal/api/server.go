package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/tokenfence/internal/inference"
	"github.com/samcharles93/tokenfence/internal/logger"
	"github.com/samcharles93/tokenfence/internal/tokenizer"
	"github.com/samcharles93/tokenfence/internal/toy"
	"github.com/samcharles93/tokenfence/pkg/enforce"
	"github.com/samcharles93/tokenfence/pkg/grammar"
)

// Server exposes constrained generation over HTTP. Every request builds a
// fresh engine around the shared demo model configuration, so requests do
// not share decoding state.
type Server struct {
	log logger.Logger

	// Demo model shape. The API serves the built-in byte vocabulary and
	// seeded toy model; real model plumbing is out of scope here.
	hidden    int
	modelSeed int64

	clock func() time.Time
}

func NewServer(log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		log:       log,
		hidden:    32,
		modelSeed: 1,
		clock:     time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/generate", s.handleGenerate)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(c *echo.Context) error {
	req, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	prompts := req.Prompts
	if len(prompts) == 0 && req.Prompt != "" {
		prompts = []string{req.Prompt}
	}
	if len(prompts) == 0 {
		return writeBadRequest(c, "prompt or prompts is required")
	}
	if len(req.Match) == 0 {
		return writeBadRequest(c, "match must list at least one string")
	}

	resp, streamErr := s.generate(c.Request().Context(), req, prompts, streamWriterFor(c, req))
	if streamErr != nil {
		if errors.Is(streamErr, ErrInvalidRequest) {
			return writeBadRequest(c, streamErr.Error())
		}
		s.log.Error("generation failed", "error", streamErr)
		return writeError(c, http.StatusInternalServerError, "server_error", streamErr.Error())
	}
	if resp == nil {
		// Streamed; the writer already emitted the final event.
		return nil
	}
	return c.JSON(http.StatusOK, resp)
}

// generate assembles the capability stack and runs the enforcement layer.
// A non-nil stream writer switches the response to SSE and the returned
// response is nil.
func (s *Server) generate(ctx context.Context, req GenerateRequest, prompts []string, sw *sseWriter) (*GenerateResponse, error) {
	vocab := tokenizer.ByteLevel()
	model := toy.New(vocab.VocabSize(), s.hidden, s.modelSeed)

	ids := make([][]int, 0, len(prompts))
	for _, p := range prompts {
		encoded, err := vocab.Encode(p)
		if err != nil {
			return nil, newInvalidRequest(fmt.Sprintf("prompt: %v", err))
		}
		// Anchor with BOS so even an empty prompt yields a prefill token.
		ids = append(ids, append([]int{0}, encoded...))
	}

	genReq := &inference.Request{
		Prompts:       ids,
		Steps:         valueOr(req.Steps, 64),
		NumBeams:      valueOr(req.NumBeams, 1),
		Seed:          valueOr(req.Seed, int64(0)),
		Temperature:   valueOr(req.Temperature, 0.8),
		TopK:          valueOr(req.TopK, 40),
		TopP:          valueOr(req.TopP, 0.95),
		MinP:          valueOr(req.MinP, 0.0),
		RepeatPenalty: valueOr(req.RepeatPenalty, 1.0),
	}
	if sw != nil {
		genReq.Stream = sw.emitToken
	}
	if genReq.NumBeams > 1 {
		return nil, newInvalidRequest("num_beams above 1 is not supported")
	}

	engine, err := inference.NewEngine(model, vocab, genReq)
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}

	table, err := enforce.BuildRegularTokens(vocab)
	if err != nil {
		return nil, err
	}
	oracle := grammar.NewEnforcer(table, grammar.Strings(req.Match...), vocab.EOSTokenID())

	out, err := enforce.GenerateEnforced(ctx, engine, vocab, oracle, enforce.Options{
		WantDiagnostics: valueOr(req.WantDiagnostics, false),
		Logger:          logger.Slog(s.log),
	})
	if sw != nil {
		if err != nil {
			return nil, sw.finish(nil, err)
		}
		return nil, sw.finish(s.buildResponse(out), nil)
	}
	if err != nil {
		return nil, err
	}
	return s.buildResponse(out), nil
}

func (s *Server) buildResponse(out *enforce.Output) *GenerateResponse {
	resp := &GenerateResponse{
		ID:            "gen_" + uuid.NewString(),
		Object:        "generation",
		CreatedAt:     s.clock().Unix(),
		Text:          out.Text,
		FinishReasons: out.FinishReasons,
	}
	if out.EnforcedScores != nil {
		resp.EnforcedScores = out.EnforcedScores
	}
	return resp
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var v T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("invalid JSON body: %w", err)
	}
	return v, nil
}

func valueOr[T any](p *T, fallback T) T {
	if p != nil {
		return *p
	}
	return fallback
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": msg,
		},
	})
}
