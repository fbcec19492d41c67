package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
)

func createTestRequest() pricing.ScoreRequest {
	return pricing.ScoreRequest{
		Text:        "GTİP 8471.30 için ek gümrük vergisi uygulanır mı?",
		Attachments: []pricing.Attachment{{Name: "fatura.pdf", Size: 2048, Type: "application/pdf"}},
		Criteria: []pricing.CriterionPrompt{
			{Key: models.CriterionGtip, Title: "GTİP", Anchors: pricing.HintsFor(models.CriterionGtip)},
			{Key: models.CriterionTax, Title: "Vergi", Anchors: pricing.HintsFor(models.CriterionTax)},
			{Key: models.CriterionLegal, Title: "Mevzuat", Anchors: pricing.HintsFor(models.CriterionLegal)},
		},
		Extras: []string{"Acil yazışma"},
	}
}

// newTestServer отвечает содержимым content в формате chat/completions и сохраняет тело запроса.
func newTestServer(t *testing.T, status int, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			_, _ = w.Write([]byte(`{"error": "upstream"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}))
}

func TestClient_Score(t *testing.T) {
	content := "Sonuç:\n```json\n" + `{
		"scores": {"k_gtip": 7, "k_tax": "6,5", "k_legal": 14, "k_unknown": 3},
		"gtip_present": "evet", "gtip_difficulty": 6, "gtip_count": 2,
		"legal_score": 4, "language_score": "1", "lang_gap_ratio": 1.7,
		"extras": {"Acil yazışma": 8}
	}` + "\n```"

	var body map[string]any
	srv := newTestServer(t, http.StatusOK, content, &body)
	defer srv.Close()

	client := NewClient(srv.URL+"/v1", "test-model", "test-key", time.Second)
	res, err := client.Score(context.Background(), createTestRequest())
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		models.CriterionGtip:  7,
		models.CriterionTax:   6.5,
		models.CriterionLegal: 10,
	}, res.Scores)
	assert.True(t, res.GtipPresent)
	assert.Equal(t, 6.0, res.GtipDifficulty)
	assert.Equal(t, 2, res.GtipCount)
	assert.Equal(t, 4.0, res.LegalScore)
	assert.Equal(t, 1.0, res.LanguageScore)
	require.NotNil(t, res.LangGapRatio)
	assert.Equal(t, 1.0, *res.LangGapRatio)
	assert.Equal(t, map[string]float64{"Acil yazışma": 8}, res.Extras)
	assert.Equal(t, models.ScoringSourceModel, res.Source)

	assert.Equal(t, "test-model", body["model"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "fatura.pdf")
	assert.Contains(t, user, models.CriterionGtip)
	assert.Contains(t, user, "Acil yazışma")
	assert.NotContains(t, user, "full 0-10 range")
}

func TestClient_Score_Strict(t *testing.T) {
	var body map[string]any
	srv := newTestServer(t, http.StatusOK, `{"scores": {"k_gtip": 2, "k_tax": 9, "k_legal": 5}}`, &body)
	defer srv.Close()

	req := createTestRequest()
	req.Strict = true
	res, err := NewClient(srv.URL+"/v1/", "", "test-key", 0).Score(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.ScoringSourceModelRetry, res.Source)
	assert.Equal(t, defaultModel, body["model"])
	user := body["messages"].([]any)[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "full 0-10 range")
}

func TestClient_Score_Unparsable(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "I cannot rate this request.", nil)
	defer srv.Close()

	res, err := NewClient(srv.URL+"/v1", "m", "test-key", time.Second).Score(context.Background(), createTestRequest())
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestClient_Score_ProviderError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadGateway, "", nil)
	defer srv.Close()

	_, err := NewClient(srv.URL+"/v1", "m", "test-key", time.Second).Score(context.Background(), createTestRequest())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "502"))
}

func TestClient_Score_MissingCredential(t *testing.T) {
	client := NewClient("http://127.0.0.1:1/v1", "m", "  ", time.Second)

	_, err := client.Score(context.Background(), createTestRequest())
	assert.ErrorIs(t, err, pricing.ErrMissingCredential)
	assert.False(t, client.HasCredential())
}

func TestParseJSONFromText(t *testing.T) {
	assert.Equal(t, 1.0, parseJSONFromText(`prefix {"a": 1} suffix`)["a"])
	assert.Equal(t, 2.0, parseJSONFromText("```json\n{\"a\": 2}\n```")["a"])
	assert.Empty(t, parseJSONFromText("no json here"))
	assert.Empty(t, parseJSONFromText("{broken"))
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{7.0, 7, true},
		{"7", 7, true},
		{" 6,5 ", 6.5, true},
		{"8/10", 8, true},
		{true, 1, true},
		{"high", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := toFloat(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestParseScoreResult_GtipCountBounded(t *testing.T) {
	tests := []struct {
		raw  interface{}
		want int
	}{
		{3.0, 3},
		{1e300, maxGtipCount},
		{"Inf", maxGtipCount},
		{"NaN", 1},
		{-4.0, 1},
	}
	for _, tt := range tests {
		res := parseScoreResult(map[string]interface{}{"gtip_present": true, "gtip_count": tt.raw}, pricing.ScoreRequest{})
		assert.Equal(t, tt.want, res.GtipCount, "%v", tt.raw)
	}
}
