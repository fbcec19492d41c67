package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/customs-pricing/internal/models"
)

const sampleQuestion = `Firmamız Almanya'dan makine parçası ithal ediyor. GTIP 8466.93.70.00 ve 8483.40.90.00
arasında itiraz var. Faturada royalti ve navlun ayrı gösterilmiş, KDV ve ek gümrük vergisi
hesaplaması gerekiyor. EUR.1 menşe belgesi eksik, tebliğ hükümleri belirsiz.`

func TestHeuristicScores_Deterministic(t *testing.T) {
	keys := models.CanonicalCriterionKeys
	attachments := []Attachment{{Name: "invoice.pdf", Size: 120000, Type: "application/pdf"}}

	first := HeuristicScores(sampleQuestion, attachments, keys)
	for i := 0; i < 5; i++ {
		again := HeuristicScores(sampleQuestion, attachments, keys)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, models.ScoringSourceHeuristic, first.Source)
	assert.Len(t, first.Scores, len(keys))
}

func TestHeuristicScores_Gtip(t *testing.T) {
	res := HeuristicScores(sampleQuestion, nil, []string{models.CriterionGtip})

	assert.True(t, res.GtipPresent)
	assert.Equal(t, 2, res.GtipCount)
	assert.Equal(t, 6.5, res.GtipDifficulty)
	assert.Greater(t, res.Scores[models.CriterionGtip], 0.0)
}

func TestHeuristicScores_NoGtip(t *testing.T) {
	res := HeuristicScores("Merhaba, ithalatta KDV oranı nedir?", nil, []string{models.CriterionGtip, models.CriterionTax})

	assert.False(t, res.GtipPresent)
	assert.Equal(t, 0, res.GtipCount)
	assert.Equal(t, 0.0, res.GtipDifficulty)
	assert.Equal(t, 0.0, res.Scores[models.CriterionGtip])
	assert.Greater(t, res.Scores[models.CriterionTax], 0.0)
}

func TestHeuristicScores_KeywordSignals(t *testing.T) {
	res := HeuristicScores(sampleQuestion, nil, models.CanonicalCriterionKeys)

	assert.Greater(t, res.Scores[models.CriterionValuation], 0.0)
	assert.Greater(t, res.Scores[models.CriterionTax], 0.0)
	assert.Greater(t, res.Scores[models.CriterionOrigin], 0.0)
	assert.Greater(t, res.Scores[models.CriterionDataQuality], 0.0)
	assert.Greater(t, res.LegalScore, 0.0)
	for key, score := range res.Scores {
		assert.GreaterOrEqual(t, score, 0.0, key)
		assert.LessOrEqual(t, score, 10.0, key)
	}
}

func TestHeuristicScores_DocumentsAndAttachments(t *testing.T) {
	keys := []string{models.CriterionDocuments}
	without := HeuristicScores("kısa soru", nil, keys)
	with := HeuristicScores("kısa soru", []Attachment{
		{Name: "a.pdf", Size: 4 * 1024 * 1024},
		{Name: "b.xlsx", Size: 3 * 1024 * 1024},
	}, keys)

	assert.Equal(t, 0.0, without.Scores[models.CriterionDocuments])
	assert.Equal(t, 5.0, with.Scores[models.CriterionDocuments])
}

func TestHeuristicScores_ForeignScript(t *testing.T) {
	latin := HeuristicScores("fatura ekte", nil, []string{models.CriterionLanguage})
	cyrillic := HeuristicScores("счет-фактура во вложении", nil, []string{models.CriterionLanguage})

	assert.Equal(t, 0.0, latin.LanguageScore)
	assert.Equal(t, 3.0, cyrillic.LanguageScore)
	assert.Equal(t, 3.0, cyrillic.Scores[models.CriterionLanguage])
}

func TestHeuristicScores_UnknownKeyUsesLength(t *testing.T) {
	res := HeuristicScores("kısa", nil, []string{"c_1a2b3c4d"})
	assert.Equal(t, 0.0, res.Scores["c_1a2b3c4d"])
}

func TestHeuristicScorer_ImplementsScorer(t *testing.T) {
	var s Scorer = NewHeuristicScorer()
	res, err := s.Score(context.Background(), ScoreRequest{
		Text:     sampleQuestion,
		Criteria: []CriterionPrompt{{Key: models.CriterionGtip}, {Key: models.CriterionTax}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Scores, 2)
	assert.Empty(t, res.Extras)
}

func TestIsUniform(t *testing.T) {
	assert.True(t, IsUniform(map[string]float64{"a": 5, "b": 5, "c": 5}))
	assert.True(t, IsUniform(map[string]float64{"a": 5, "b": 5.5, "c": 5}))
	assert.False(t, IsUniform(map[string]float64{"a": 1, "b": 5, "c": 9}))
	assert.False(t, IsUniform(map[string]float64{"a": 5, "b": 5}))
}
