package pricing

import "github.com/ignatzorin/customs-pricing/internal/models"

// Anchors - примеры уровней сложности для оценок 0, 2, 5, 8 и 10.
type Anchors [5]string

// SeedCriterion - критерий стартовой рубрики.
type SeedCriterion struct {
	Key           string
	TitleTR       string
	TitleEN       string
	DescriptionTR string
	DescriptionEN string
	Weight        float64
}

// SeedCriteria возвращает каноническую рубрику из 11 критериев (сумма весов 100).
// Используется только для первичной инициализации.
func SeedCriteria() []SeedCriterion {
	return []SeedCriterion{
		{models.CriterionGtip, "GTİP sınıflandırması", "Tariff classification", "GTİP kodu tespiti ve zorluğu", "Presence and difficulty of HS/GTİP codes", 15},
		{models.CriterionValuation, "Kıymet tespiti", "Customs valuation", "Royalti, indirim, navlun düzeltmeleri", "Royalties, discounts, freight adjustments", 12},
		{models.CriterionLegal, "Mevzuat karmaşıklığı", "Legal complexity", "Mevzuat atıfları ve yorum ihtiyacı", "Regulatory citations and interpretation", 12},
		{models.CriterionProcess, "Süreç katmanları", "Process layering", "Çok adımlı işlemler", "Multi-step procedures", 10},
		{models.CriterionTax, "Vergi boyutu", "Tax aspects", "KDV, ÖTV, ek gümrük vergisi", "VAT, excise, additional duties", 8},
		{models.CriterionDocuments, "Belge yükü", "Document load", "Belge sayısı ve metin uzunluğu", "Number of documents and text length", 8},
		{models.CriterionLanguage, "Yabancı dil", "Foreign language", "Yabancı dilde belge ve yazışma", "Foreign-language documents and correspondence", 5},
		{models.CriterionPermits, "İzin ve sertifikalar", "Permits and certificates", "Lisans, izin, uygunluk belgeleri", "Licences, permits, conformity certificates", 10},
		{models.CriterionOrigin, "Menşe ve STA", "Origin and FTA", "Menşe kuralları ve serbest ticaret anlaşmaları", "Rules of origin and free trade agreements", 8},
		{models.CriterionDataQuality, "Veri kalitesi", "Data quality", "Eksik veya dağınık veri", "Missing or messy data", 6},
		{models.CriterionInternational, "Uluslararası referans", "International references", "DTÖ, AB, WCO kararları", "WTO, EU, WCO references", 6},
	}
}

// SeedRubric возвращает стартовую рубрику в виде критериев версии (все включены).
func SeedRubric() []models.RubricCriterion {
	seed := SeedCriteria()
	out := make([]models.RubricCriterion, 0, len(seed))
	for i, s := range seed {
		out = append(out, models.RubricCriterion{
			Key:           s.Key,
			TitleTR:       s.TitleTR,
			TitleEN:       s.TitleEN,
			DescriptionTR: s.DescriptionTR,
			DescriptionEN: s.DescriptionEN,
			OrderIndex:    i,
			Weight:        s.Weight,
			Enabled:       true,
		})
	}
	return out
}

var rubricHints = map[string]Anchors{
	models.CriterionGtip: {
		"no goods classification involved",
		"single well-known HS code, lookup only",
		"a few codes or one code with competing headings",
		"many codes, disputed headings, binding tariff information likely",
		"novel product, conflicting rulings, classification dispute",
	},
	models.CriterionValuation: {
		"declared price accepted as is",
		"simple freight or insurance addition",
		"discounts or related-party pricing to assess",
		"royalties, licence fees or assists to apportion",
		"transfer pricing dispute with retroactive adjustments",
	},
	models.CriterionLegal: {
		"no regulation needs to be cited",
		"one well-known article applies",
		"several regulations must be reconciled",
		"conflicting provisions, circulars or court decisions",
		"untested legal question requiring formal opinion",
	},
	models.CriterionProcess: {
		"single informational answer",
		"one procedure with a couple of steps",
		"several procedures in sequence",
		"multi-party process with authorities and deadlines",
		"long-running regime (inward processing, warehousing) with audits",
	},
	models.CriterionTax: {
		"no tax question",
		"standard VAT rate lookup",
		"exemptions or additional customs duty to check",
		"excise, anti-dumping or surveillance duties combined",
		"retroactive tax assessment with penalties",
	},
	models.CriterionDocuments: {
		"short question, no attachments",
		"one short attachment",
		"several documents to read",
		"large document set or long contracts",
		"hundreds of pages or spreadsheets to reconcile",
	},
	models.CriterionLanguage: {
		"everything in the working language",
		"a short foreign term or two",
		"one foreign-language document",
		"several foreign-language documents",
		"translation-heavy work across multiple languages",
	},
	models.CriterionPermits: {
		"no permits involved",
		"one routine certificate",
		"a permit from one authority",
		"several permits or conformity assessments",
		"licensing with controlled goods or sanctions screening",
	},
	models.CriterionOrigin: {
		"origin irrelevant",
		"origin stated on invoice",
		"preferential origin proof (EUR.1, ATR) to check",
		"cumulation or rules-of-origin calculation",
		"origin verification or dispute with partner customs",
	},
	models.CriterionDataQuality: {
		"clean, complete data",
		"minor gaps",
		"several inconsistencies to clarify",
		"messy spreadsheets, mismatched invoices",
		"data must be reconstructed from scratch",
	},
	models.CriterionInternational: {
		"purely domestic question",
		"one international reference",
		"EU or WCO guidance to compare",
		"several international regimes to reconcile",
		"WTO-level or multi-jurisdiction analysis",
	},
}

var genericAnchors = Anchors{
	"not relevant to the request",
	"barely relevant, trivial",
	"moderately demanding",
	"demanding, needs expert time",
	"extremely demanding",
}

// HintsFor возвращает опорные примеры для ключа критерия.
func HintsFor(key string) Anchors {
	if a, ok := rubricHints[key]; ok {
		return a
	}
	return genericAnchors
}
