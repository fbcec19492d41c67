package pricing

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/ignatzorin/customs-pricing/internal/models"
)

// keywordRule - правило эвристики: подстроки, слова с границами и вес одного совпадения.
type keywordRule struct {
	terms  []string
	words  *regexp.Regexp
	perHit float64
}

// hits считает различные совпадения правила в тексте (текст уже в нижнем регистре).
func (r keywordRule) hits(text string) int {
	n := 0
	for _, t := range r.terms {
		if strings.Contains(text, t) {
			n++
		}
	}
	if r.words != nil {
		seen := make(map[string]struct{})
		for _, m := range r.words.FindAllString(text, -1) {
			seen[m] = struct{}{}
		}
		n += len(seen)
	}
	return n
}

func (r keywordRule) score(text string) float64 {
	return ClampScore(float64(r.hits(text)) * r.perHit)
}

var (
	gtipCodePattern = regexp.MustCompile(`\b\d{4}\.\d{2}(?:\.\d{2}){0,3}\b`)
	cyrillicOrCJK   = []*unicode.RangeTable{unicode.Cyrillic, unicode.Han, unicode.Arabic, unicode.Hangul, unicode.Greek}

	gtipRule = keywordRule{
		terms:  []string{"gtip", "hs code", "hs kodu", "tarife pozisyon", "tariff code", "tariff classification", "sınıflandırma", "classification", "bağlayıcı tarife", "binding tariff", "fasıl", "chapter note"},
		words:  regexp.MustCompile(`\b(bti|btb|heading|cn code|taric)\b`),
		perHit: 2.5,
	}
	gtipDisputeRule = keywordRule{
		terms: []string{"itiraz", "dispute", "farklı pozisyon", "different heading", "yeniden sınıflandırma", "reclassification", "çelişkili", "conflicting"},
	}
	rules = map[string]keywordRule{
		models.CriterionValuation: {
			terms:  []string{"royalt", "lisans bedeli", "license fee", "licence fee", "indirim", "discount", "navlun", "freight", "sigorta", "insurance", "transfer pric", "transfer fiyat", "ilişkili kişi", "related part", "kıymet", "valuation", "gümrük değeri", "customs value"},
			words:  regexp.MustCompile(`\b(exw|fob|cif|cfr|dap|ddp|fca|incoterms?)\b`),
			perHit: 2,
		},
		models.CriterionLegal: {
			terms:  []string{"mevzuat", "yönetmelik", "kanun", "tebliğ", "genelge", "madde", "karar", "mahkeme", "regulation", "article", "circular", "court", "ruling", "ceza", "penalty", "legal", "hukuk"},
			perHit: 2,
		},
		models.CriterionProcess: {
			terms:  []string{"adım", "aşama", "süreç", "step", "process", "procedure", "prosedür", "başvuru", "application", "beyanname", "declaration", "transit", "antrepo", "warehouse", "dahilde işleme", "inward processing", "hariçte işleme", "outward processing", "geçici ithalat", "temporary import", "ardından", "sonra", "then"},
			perHit: 1.5,
		},
		models.CriterionTax: {
			terms:  []string{"kdv", "ötv", "ek gümrük vergisi", "additional duty", "additional customs duty", "damping", "dumping", "gözetim", "surveillance", "vergi", "excise", "stopaj", "tax"},
			words:  regexp.MustCompile(`\b(vat|duty|duties|igv)\b`),
			perHit: 2,
		},
		models.CriterionPermits: {
			terms:  []string{"izin", "permit", "lisans", "licence", "license", "sertifika", "certificate", "tse", "ce işaret", "ce marking", "uygunluk", "conformity", "kontrol belgesi", "ithal lisans", "import licen", "tarım", "agricultur", "sağlık", "health", "çift kullanım", "dual-use", "dual use", "yaptırım", "sanction"},
			perHit: 2,
		},
		models.CriterionOrigin: {
			terms:  []string{"menşe", "origin", "eur.1", "eur-med", "a.tr", "serbest ticaret", "free trade", "tercihli", "preferential", "kümülasyon", "cumulation", "gsp"},
			words:  regexp.MustCompile(`\b(atr|fta|sta)\b`),
			perHit: 2.5,
		},
		models.CriterionDataQuality: {
			terms:  []string{"eksik", "missing", "hatalı", "incorrect", "wrong", "tutarsız", "inconsistent", "karışık", "messy", "mismatch", "uyuşmu", "düzensiz", "belirsiz", "unclear", "bilmiyoruz", "don't know", "not sure", "emin değil"},
			perHit: 2,
		},
		models.CriterionInternational: {
			terms:  []string{"wto", "dtö", "wco", "dgö", "avrupa birliği", "european union", "gatt", "uluslararası", "international", "harmonized system", "armonize sistem", "kyoto", "atr belgesi"},
			words:  regexp.MustCompile(`\b(eu|ab|oecd|unctad)\b`),
			perHit: 2.5,
		},
		models.CriterionLanguage: {
			terms:  []string{"çeviri", "tercüme", "translation", "translate", "ingilizce", "english", "almanca", "german", "çince", "chinese", "rusça", "russian", "arapça", "arabic", "yabancı dil", "foreign language"},
			perHit: 2,
		},
	}
	documentRule = keywordRule{
		terms:  []string{"fatura", "invoice", "çeki listesi", "packing list", "sözleşme", "contract", "belge", "document", "konşimento", "bill of lading", "excel", "pdf", "tablo", "spreadsheet", "ek'te", "ekte", "attached"},
		perHit: 1,
	}
)

// HeuristicScorer - детерминированный оценщик по ключевым словам.
// Одинаковый текст и вложения всегда дают одинаковые оценки.
type HeuristicScorer struct{}

// NewHeuristicScorer создаёт эвристический оценщик.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score реализует Scorer. Никогда не возвращает ошибку.
func (h *HeuristicScorer) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	res := HeuristicScores(req.Text, req.Attachments, req.Keys())
	return &res, nil
}

// HeuristicScores вычисляет оценки 0–10 для переданных ключей и побочные сигналы.
func HeuristicScores(text string, attachments []Attachment, keys []string) ScoreResult {
	lower := strings.ToLower(text)

	res := ScoreResult{
		Scores: make(map[string]float64, len(keys)),
		Extras: map[string]float64{},
		Source: models.ScoringSourceHeuristic,
	}

	codes := distinctCodes(lower)
	gtipHits := gtipRule.hits(lower)
	res.GtipPresent = len(codes) > 0 || gtipHits > 0
	if res.GtipPresent {
		res.GtipCount = len(codes)
		if res.GtipCount == 0 {
			res.GtipCount = 1
		}
		difficulty := 3 + 1.5*float64(res.GtipCount-1)
		if gtipDisputeRule.hits(lower) > 0 {
			difficulty += 2
		}
		res.GtipDifficulty = ClampScore(difficulty)
	}

	for _, key := range keys {
		res.Scores[key] = heuristicScore(key, lower, attachments, gtipHits, len(codes))
	}

	res.LegalScore = rules[models.CriterionLegal].score(lower)
	res.LanguageScore = languageScore(text, lower)
	return res
}

func heuristicScore(key, lower string, attachments []Attachment, gtipHits, codeCount int) float64 {
	switch key {
	case models.CriterionGtip:
		return ClampScore(float64(gtipHits)*gtipRule.perHit + float64(codeCount)*2)
	case models.CriterionDocuments:
		return documentScore(lower, attachments)
	case models.CriterionLanguage:
		return languageScore(lower, lower)
	}
	if rule, ok := rules[key]; ok {
		return rule.score(lower)
	}
	return lengthScore(lower)
}

// documentScore учитывает длину текста, число и размер вложений.
func documentScore(lower string, attachments []Attachment) float64 {
	score := lengthScore(lower) + documentRule.score(lower)
	var totalSize int64
	for _, a := range attachments {
		score += 1.5
		totalSize += a.Size
	}
	if totalSize > 5*1024*1024 {
		score += 2
	}
	return ClampScore(score)
}

// languageScore: явные упоминания языков и символы нелатинских алфавитов.
func languageScore(original, lower string) float64 {
	score := rules[models.CriterionLanguage].score(lower)
	for _, r := range original {
		if unicode.IsOneOf(cyrillicOrCJK, r) {
			score += 3
			break
		}
	}
	return ClampScore(score)
}

// lengthScore - одна единица на каждые 60 слов, не больше 6.
func lengthScore(lower string) float64 {
	words := len(strings.Fields(lower))
	return math.Min(6, math.Floor(float64(words)/60))
}

func distinctCodes(lower string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range gtipCodePattern.FindAllString(lower, -1) {
		norm := strings.ReplaceAll(m, ".", "")
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}
