package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/tool"

	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
)

// Classifier is the intent decisor.
type Classifier interface {
	Classify(ctx context.Context, input string) model.Classification
}

// Runner runs a full chat turn.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.Reply, error)
}

// ClassifyRequest is the body of POST /api/classify.
type ClassifyRequest struct {
	UserInput string `json:"userInput"`
}

// ToolDescriptor lists one callable tool.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Handler serves the RPC surface.
type Handler struct {
	classifier   Classifier
	runner       Runner
	tools        map[string]tool.InvokableTool
	descriptors  []ToolDescriptor
	maxBodyBytes int64
}

// NewHandler wires the handler. runner may be nil when no LLM is configured;
// /api/chat then answers 503.
func NewHandler(ctx context.Context, classifier Classifier, runner Runner, tools map[string]tool.InvokableTool, maxBodyBytes int64) (*Handler, error) {
	h := &Handler{
		classifier:   classifier,
		runner:       runner,
		tools:        tools,
		maxBodyBytes: maxBodyBytes,
	}
	for name, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		h.descriptors = append(h.descriptors, ToolDescriptor{Name: name, Description: info.Desc})
	}
	sort.Slice(h.descriptors, func(i, j int) bool { return h.descriptors[i].Name < h.descriptors[j].Name })
	return h, nil
}

// Routes returns the route groups served by the handler.
func (h *Handler) Routes() []Group {
	return []Group{
		{
			Prefix: "/api",
			Routes: []Route{
				{Method: "POST", Pattern: "/classify", Handler: h.Classify},
				{Method: "POST", Pattern: "/chat", Handler: h.Chat},
			},
			Children: []Group{
				{
					Prefix: "/tools",
					Routes: []Route{
						{Method: "GET", Pattern: "", Handler: h.ListTools},
						{Method: "POST", Pattern: "/{name}", Handler: h.CallTool},
					},
				},
			},
		},
		{
			Routes: []Route{
				{Method: "GET", Pattern: "/healthz", Handler: h.Health},
			},
		},
	}
}

// Classify returns the classification of userInput. Classification never
// fails, so the only errors are malformed requests.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := h.decode(w, r, &req); err != nil {
		RespondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		RespondError(w, r, errx.BadRequest("userInput é obrigatório", nil))
		return
	}

	RespondJSON(w, http.StatusOK, h.classifier.Classify(r.Context(), req.UserInput))
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		RespondError(w, r, errx.NewCode(errx.CodeServiceUnavailable, http.StatusServiceUnavailable, "chat disabled", nil))
		return
	}

	var req model.QueryInput
	if err := h.decode(w, r, &req); err != nil {
		RespondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		RespondError(w, r, errx.BadRequest("message é obrigatório", nil))
		return
	}

	reply, err := h.runner.Invoke(r.Context(), req)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{"tools": h.descriptors})
}

// CallTool runs one tool with the raw JSON body as arguments.
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	t, ok := h.tools[name]
	if !ok {
		RespondError(w, r, errx.NewCode(errx.CodeBadRequest, http.StatusNotFound, "ferramenta desconhecida: "+name, nil))
		return
	}

	var args json.RawMessage
	if err := h.decode(w, r, &args); err != nil {
		RespondError(w, r, err)
		return
	}

	out, err := t.InvokableRun(r.Context(), string(args))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, json.RawMessage(out))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errx.NewCode(errx.CodeBadRequest, http.StatusRequestEntityTooLarge, "corpo da requisição muito grande", err)
		}
		return errx.BadRequest("JSON inválido", err)
	}
	return nil
}
