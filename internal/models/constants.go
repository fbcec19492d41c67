package models

// Источники оценок критериев.
const (
	ScoringSourceModel      = "model"
	ScoringSourceModelRetry = "model_retry"
	ScoringSourceHeuristic  = "heuristic"
)

// Источники почасовой ставки.
const (
	HourlySourceWorker  = "worker"
	HourlySourceVersion = "version"
	HourlySourceDefault = "default"
)

// Типы клиентов для скидки при расчёте кредитов.
const (
	CustomerTypeIndividual = "individual"
	CustomerTypeCorporate  = "corporate"
)

// Канонические ключи критериев стартовой рубрики.
const (
	CriterionGtip          = "k_gtip"
	CriterionValuation     = "k_valuation"
	CriterionLegal         = "k_legal"
	CriterionProcess       = "k_process"
	CriterionTax           = "k_tax"
	CriterionDocuments     = "k_documents"
	CriterionLanguage      = "k_language"
	CriterionPermits       = "k_permits"
	CriterionOrigin        = "k_origin"
	CriterionDataQuality   = "k_data_quality"
	CriterionInternational = "k_international"
)

// CanonicalCriterionKeys - ключи, вынесенные в отдельные колонки снимка.
var CanonicalCriterionKeys = []string{
	CriterionGtip,
	CriterionValuation,
	CriterionLegal,
	CriterionProcess,
	CriterionTax,
	CriterionDocuments,
	CriterionLanguage,
	CriterionPermits,
	CriterionOrigin,
	CriterionDataQuality,
	CriterionInternational,
}

// ValidCustomerTypes список валидных типов клиентов
var ValidCustomerTypes = map[string]struct{}{
	CustomerTypeIndividual: {},
	CustomerTypeCorporate:  {},
}
