package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/civicconnect/civicconnect-ai/internal/config"
	"github.com/civicconnect/civicconnect-ai/internal/model/chat"
)

type generateRequest struct {
	Contents []struct {
		Role  string           `json:"role"`
		Parts []map[string]any `json:"parts"`
	} `json:"contents"`
}

// geminiStub answers generateContent calls with a canned status and body per call.
type geminiStub struct {
	mu        sync.Mutex
	responses []stubResponse
	requests  []generateRequest
}

type stubResponse struct {
	status int
	body   string
}

func okResponse(texts ...string) stubResponse {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		b, _ := json.Marshal(map[string]string{"text": t})
		parts = append(parts, string(b))
	}
	return stubResponse{
		status: http.StatusOK,
		body:   `{"candidates":[{"content":{"role":"model","parts":[` + strings.Join(parts, ",") + `]},"finishReason":"STOP"}]}`,
	}
}

func errorResponse() stubResponse {
	return stubResponse{
		status: http.StatusBadRequest,
		body:   `{"error":{"code":400,"message":"quota exceeded","status":"INVALID_ARGUMENT"}}`,
	}
}

func (s *geminiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	var req generateRequest
	_ = json.Unmarshal(body, &req)
	s.requests = append(s.requests, req)

	resp := okResponse("ok")
	if len(s.responses) > 0 {
		resp, s.responses = s.responses[0], s.responses[1:]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func newStubbedConversation(t *testing.T, responses ...stubResponse) (Conversation, *geminiStub) {
	t.Helper()
	stub := &geminiStub{responses: responses}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	cfg := config.AIConfig{GeminiAPIKey: "test-key", GeminiModel: "gemini-test"}
	provider, err := NewGeminiProvider(context.Background(), cfg, option.WithEndpoint(srv.URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	return provider.StartConversation([]chat.Turn{chat.InstructionTurn("rules")}), stub
}

func (s *geminiStub) lastRequest(t *testing.T) generateRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func TestGeminiConversationAppendsExchange(t *testing.T) {
	conv, stub := newStubbedConversation(t, okResponse("Hello ", "there"))

	reply, err := conv.SendMessage(context.Background(), chat.TextPart("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply)

	req := stub.lastRequest(t)
	require.Len(t, req.Contents, 2)
	assert.Equal(t, "model", req.Contents[0].Role)
	assert.Equal(t, "user", req.Contents[1].Role)

	history := conv.History()
	require.Len(t, history, 3)
	assert.True(t, history[0].Instruction)
	assert.Equal(t, "hi", history[1].Text())
	assert.Equal(t, chat.RoleModel, history[2].Role)
	assert.Equal(t, "Hello there", history[2].Text())
}

func TestGeminiConversationCarriesHistoryForward(t *testing.T) {
	conv, stub := newStubbedConversation(t, okResponse("one"), okResponse("two"))
	ctx := context.Background()

	_, err := conv.SendMessage(ctx, chat.TextPart("first"))
	require.NoError(t, err)
	_, err = conv.SendMessage(ctx, chat.TextPart("second"))
	require.NoError(t, err)

	req := stub.lastRequest(t)
	require.Len(t, req.Contents, 4)
	assert.Equal(t, "model", req.Contents[2].Role)
	assert.Equal(t, "second", req.Contents[3].Parts[0]["text"])
	assert.Len(t, conv.History(), 5)
}

func TestGeminiConversationUpstreamErrorIsNotResent(t *testing.T) {
	conv, stub := newStubbedConversation(t, errorResponse(), okResponse("recovered"))
	ctx := context.Background()

	_, err := conv.SendMessage(ctx, chat.TextPart("first fails"))
	require.Error(t, err)
	assert.Len(t, conv.History(), 1)

	reply, err := conv.SendMessage(ctx, chat.TextPart("second"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)

	req := stub.lastRequest(t)
	require.Len(t, req.Contents, 2)
	assert.Equal(t, "rules", req.Contents[0].Parts[0]["text"])
	assert.Equal(t, "second", req.Contents[1].Parts[0]["text"])
	assert.Len(t, conv.History(), 3)
}

func TestGeminiConversationEmptyCandidatesAreNotResent(t *testing.T) {
	conv, stub := newStubbedConversation(t, stubResponse{status: http.StatusOK, body: `{"candidates":[]}`})
	ctx := context.Background()

	_, err := conv.SendMessage(ctx, chat.TextPart("hi"))
	assert.ErrorIs(t, err, ErrEmptyReply)
	assert.Len(t, conv.History(), 1)

	_, err = conv.SendMessage(ctx, chat.TextPart("again"))
	require.NoError(t, err)
	assert.Len(t, stub.lastRequest(t).Contents, 2)
}

func TestGeminiConversationBlockedReplyIsNotResent(t *testing.T) {
	conv, stub := newStubbedConversation(t, stubResponse{
		status: http.StatusOK,
		body:   `{"candidates":[{"finishReason":"SAFETY"}]}`,
	})
	ctx := context.Background()

	_, err := conv.SendMessage(ctx, chat.TextPart("blocked"))
	require.Error(t, err)
	assert.Len(t, conv.History(), 1)

	_, err = conv.SendMessage(ctx, chat.TextPart("fine"))
	require.NoError(t, err)

	req := stub.lastRequest(t)
	require.Len(t, req.Contents, 2)
	assert.Equal(t, "fine", req.Contents[1].Parts[0]["text"])
}

func TestToGenaiPartsDropsEmptyText(t *testing.T) {
	img := &chat.Image{Format: "png", MIMEType: "image/png", Data: []byte{1, 2, 3}}

	parts := toGenaiParts([]chat.Part{chat.TextPart(""), chat.ImagePart(img)})
	require.Len(t, parts, 1)

	blob, ok := parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, blob.Data)
}

func TestToGenaiContentsKeepsRoles(t *testing.T) {
	turns := []chat.Turn{
		chat.InstructionTurn("rules"),
		{Role: chat.RoleUser, Parts: []chat.Part{chat.TextPart("q")}},
	}

	contents := toGenaiContents(turns)
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[0].Role)
	assert.Equal(t, genai.Text("rules"), contents[0].Parts[0])
	assert.Equal(t, "user", contents[1].Role)
}

func TestResponseTextWithoutTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model"}}},
	}

	_, err := responseText(resp)
	assert.ErrorIs(t, err, ErrEmptyReply)
}
