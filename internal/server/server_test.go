package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepclima/server/internal/agent/graph/tools"
	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
)

type fixedClassifier struct {
	got string
}

func (c *fixedClassifier) Classify(_ context.Context, input string) model.Classification {
	c.got = input
	return model.Classification{
		Action:           model.ActionConsultZipCode,
		ExtractedZipCode: "01310100",
		Justification:    "CEP identificado na entrada",
		FriendlyMessage:  "Vou buscar as informações do endereço para você! 😊",
	}
}

type runnerFunc func(ctx context.Context, in model.QueryInput) (*model.Reply, error)

func (f runnerFunc) Invoke(ctx context.Context, in model.QueryInput) (*model.Reply, error) {
	return f(ctx, in)
}

type lookups struct{}

func (lookups) LookupZipCode(_ context.Context, cep string) (*model.Address, error) {
	if cep == "01310100" {
		return &model.Address{ZipCode: cep, State: "SP", City: "São Paulo", Neighborhood: "Bela Vista", Street: "Avenida Paulista"}, nil
	}
	return nil, errx.NotFound(errx.ResourceCEP)
}

func (lookups) SearchCities(context.Context, string) ([]model.CityLocation, error) {
	return nil, errx.Timeout(errx.ResourceLocalidade, context.DeadlineExceeded)
}

func (lookups) Forecast(context.Context, int, int) (*model.Forecast, error) {
	return nil, errx.NotFound(errx.ResourcePrevisao)
}

func newTestServer(t *testing.T, runner Runner) (*httptest.Server, *fixedClassifier) {
	t.Helper()
	ctx := context.Background()
	invokable, err := tools.Invokable(ctx, tools.GetQueryTools(lookups{}, 4, nil))
	require.NoError(t, err)

	classifier := &fixedClassifier{}
	h, err := NewHandler(ctx, classifier, runner, invokable, 1024)
	require.NoError(t, err)

	srv := httptest.NewServer(New(Config{ShutdownTimeout: time.Second}, h).Handler())
	t.Cleanup(srv.Close)
	return srv, classifier
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestClassify(t *testing.T) {
	srv, classifier := newTestServer(t, nil)

	resp := post(t, srv.URL+"/api/classify", `{"userInput":"CEP 01310-100"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	got := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "CONSULT_ZIP_CODE", got["action"])
	assert.Equal(t, "01310100", got["extractedZipCode"])
	assert.NotContains(t, got, "extractedCity")
	assert.Equal(t, "CEP 01310-100", classifier.got)
}

func TestClassifyRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, body := range []string{`{"userInput":"  "}`, `{`, `{"userInput":"` + strings.Repeat("a", 2048) + `"}`} {
		resp := post(t, srv.URL+"/api/classify", body)
		assert.GreaterOrEqual(t, resp.StatusCode, 400)
		assert.Less(t, resp.StatusCode, 500)

		got := decodeBody[ErrorBody](t, resp)
		assert.Equal(t, errx.CodeBadRequest, got.Code)
		assert.Equal(t, resp.StatusCode, got.Status)
	}
}

func TestChat(t *testing.T) {
	srv, _ := newTestServer(t, runnerFunc(func(_ context.Context, in model.QueryInput) (*model.Reply, error) {
		return &model.Reply{
			ConversationID: in.ConversationID,
			Classification: model.Classification{Action: model.ActionRequestLocation, FriendlyMessage: "Qual cidade?"},
			Message:        "Qual cidade? " + in.Query,
		}, nil
	}))

	resp := post(t, srv.URL+"/api/chat", `{"conversationId":"c1","message":"previsão"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[model.Reply](t, resp)
	assert.Equal(t, "c1", got.ConversationID)
	assert.Equal(t, "Qual cidade? previsão", got.Message)
}

func TestChatErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp := post(t, srv.URL+"/api/chat", `{"message":"oi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv, _ = newTestServer(t, runnerFunc(func(context.Context, model.QueryInput) (*model.Reply, error) {
		return nil, errors.New("boom")
	}))
	resp = post(t, srv.URL+"/api/chat", `{"message":"oi"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	got := decodeBody[ErrorBody](t, resp)
	assert.Equal(t, errx.CodeGeneric, got.Code)
	assert.NotContains(t, got.Message, "boom")
}

func TestTools(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	list := decodeBody[struct{ Tools []ToolDescriptor }](t, resp)
	require.Len(t, list.Tools, 4)
	assert.Equal(t, tools.ToolCitySearch, list.Tools[0].Name)

	resp = post(t, srv.URL+"/api/tools/"+tools.ToolZipCodeLookup, `{"cep":"01310100"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	addr := decodeBody[model.Address](t, resp)
	assert.Equal(t, "Avenida Paulista", addr.Street)
}

func TestToolErrorsUseUserMessages(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		tool, body string
		status     int
		code       errx.Code
	}{
		{tools.ToolZipCodeLookup, `{"cep":"99999999"}`, http.StatusNotFound, errx.CodeCEPNotFound},
		{tools.ToolCitySearch, `{"city_name":"Recife"}`, http.StatusRequestTimeout, errx.CodeTimeout},
		{tools.ToolWeatherForecast, `{"city_code":1}`, http.StatusNotFound, errx.CodePrevisaoNotFound},
		{"nope", `{}`, http.StatusNotFound, errx.CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/tools/"+tt.tool, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			got := decodeBody[ErrorBody](t, resp)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestHealthAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	h, err := NewHandler(context.Background(), &fixedClassifier{}, nil, nil, 0)
	require.NoError(t, err)
	s := New(Config{ShutdownTimeout: time.Second}, h)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
