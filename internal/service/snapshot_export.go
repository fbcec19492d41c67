package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
)

const (
	exportSheet   = "snapshots"
	maxExportRows = 50000
)

var exportHeader = []string{
	"id", "created_at", "question_id", "pricing_version_id", "scoring_source", "is_urgent",
	"S_base", "f", "S_eff", "S_opt_nonlang", "S_lang", "S_final",
	"hours", "normal_days", "urgent_days", "hourly", "hourly_source",
	"min_price", "rounding_step", "urgent_multiplier",
	"price_normal", "price_urgent", "price_final", "auto_priced",
	"gtip_present", "gtip_count", "currency", "fx_rate", "display_amount", "credits",
	"k_gtip", "k_valuation", "k_legal", "k_process", "k_tax", "k_documents",
	"k_language", "k_permits", "k_origin", "k_data_quality", "k_international",
}

// ExportXLSX выгружает снимки за период [from, to) в книгу Excel для аналитики.
func (s *EstimateService) ExportXLSX(ctx context.Context, from, to time.Time) (string, []byte, error) {
	if !from.Before(to) {
		return "", nil, apperror.New(apperror.ErrCodeValidation, "начало периода должно быть раньше конца")
	}

	rows, err := s.snapshots.ListCreatedBetween(ctx, from, to, maxExportRows)
	if err != nil {
		return "", nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить расчёты")
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	xl.SetSheetName(xl.GetSheetName(0), exportSheet)
	header := exportHeader
	if err := xl.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return "", nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сформировать выгрузку")
	}

	for i, snap := range rows {
		record := snapshotRecord(snap)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(exportSheet, cell, &record); err != nil {
			return "", nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сформировать выгрузку")
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось записать выгрузку")
	}
	filename := fmt.Sprintf("pricing_snapshots_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	return filename, buf.Bytes(), nil
}

func snapshotRecord(s models.PricingSnapshot) []interface{} {
	return []interface{}{
		s.ID.String(), s.CreatedAt.UTC().Format(time.RFC3339), s.QuestionID.String(), s.PricingVersionID.String(),
		s.ScoringSource, s.IsUrgent,
		s.SBase, s.Factor, s.SEff, s.SOptNonLang, s.SLang, s.SFinal,
		s.Hours, s.NormalDays, s.UrgentDays, s.HourlyRate, s.HourlySource,
		s.MinPrice, s.RoundingStep, s.UrgentMultiplier,
		s.PriceNormal, s.PriceUrgent, s.PriceFinal, s.AutoPriced,
		s.GtipPresent, s.GtipCount, optString(s.Currency), optFloat(s.FXRate), optFloat(s.DisplayAmount), optInt(s.Credits),
		optFloat(s.KGtip), optFloat(s.KValuation), optFloat(s.KLegal), optFloat(s.KProcess), optFloat(s.KTax),
		optFloat(s.KDocuments), optFloat(s.KLanguage), optFloat(s.KPermits), optFloat(s.KOrigin),
		optFloat(s.KDataQuality), optFloat(s.KInternational),
	}
}

// Пустая ячейка вместо нуля для отсутствующих значений.
func optFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optInt(v *int64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
