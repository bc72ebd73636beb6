// Package export writes a tenant's leads and deals, score fields included, to
// Parquet files or JSON.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
)

const (
	LeadsFile = "leads.parquet"
	DealsFile = "deals.parquet"
)

// LeadRow is the flat Parquet layout of a lead.
type LeadRow struct {
	ID                    string     `parquet:"id,snappy"`
	TenantID              string     `parquet:"tenant_id,snappy,dict"`
	Name                  string     `parquet:"name,snappy"`
	Email                 string     `parquet:"email,snappy"`
	PhoneE164             string     `parquet:"phone_e164,snappy"`
	Company               string     `parquet:"company,snappy"`
	JobTitle              string     `parquet:"job_title,snappy"`
	Source                string     `parquet:"source,snappy,dict"`
	Status                string     `parquet:"status,snappy,dict"`
	Priority              string     `parquet:"priority,snappy,dict"`
	Tags                  []string   `parquet:"tags,list"`
	EmailsOpened          int32      `parquet:"emails_opened,snappy"`
	EmailsClicked         int32      `parquet:"emails_clicked,snappy"`
	CallsConnected        int32      `parquet:"calls_connected,snappy"`
	MeetingsHeld          int32      `parquet:"meetings_held,snappy"`
	Converted             bool       `parquet:"converted"`
	Score                 int32      `parquet:"ai_score,snappy"`
	Grade                 string     `parquet:"ai_grade,snappy,dict"`
	ConversionProbability float64    `parquet:"conversion_probability,snappy"`
	RecommendedAction     string     `parquet:"recommended_action,snappy,dict"`
	AnalyzedAt            *time.Time `parquet:"ai_analyzed_at,optional,snappy"`
	CreatedAt             time.Time  `parquet:"created_at,snappy"`
}

// DealRow is the flat Parquet layout of a deal.
type DealRow struct {
	ID                string     `parquet:"id,snappy"`
	TenantID          string     `parquet:"tenant_id,snappy,dict"`
	Title             string     `parquet:"title,snappy"`
	Company           string     `parquet:"company,snappy"`
	Value             float64    `parquet:"value,snappy"`
	Currency          string     `parquet:"currency,snappy,dict"`
	Pipeline          string     `parquet:"pipeline,snappy,dict"`
	Stage             string     `parquet:"stage,snappy,dict"`
	Status            string     `parquet:"status,snappy,dict"`
	Probability       int32      `parquet:"probability,snappy"`
	ActivityCount     int32      `parquet:"activity_count,snappy"`
	DealScore         int32      `parquet:"deal_score,snappy"`
	WinProbability    float64    `parquet:"win_probability,snappy"`
	RiskLevel         string     `parquet:"risk_level,snappy,dict"`
	Sentiment         string     `parquet:"sentiment,snappy,dict"`
	ExpectedCloseDate *time.Time `parquet:"expected_close_date,optional,snappy"`
	ActualCloseDate   *time.Time `parquet:"actual_close_date,optional,snappy"`
	AnalyzedAt        *time.Time `parquet:"ai_analyzed_at,optional,snappy"`
	CreatedAt         time.Time  `parquet:"created_at,snappy"`
}

// Result reports what an export wrote.
type Result struct {
	Leads     int    `json:"leads"`
	Deals     int    `json:"deals"`
	LeadsPath string `json:"leads_path,omitempty"`
	DealsPath string `json:"deals_path,omitempty"`
}

// Document is the JSON export of one tenant.
type Document struct {
	TenantID   string         `json:"tenant_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Leads      []*models.Lead `json:"leads"`
	Deals      []*models.Deal `json:"deals"`
}

// Exporter reads a tenant's live records and writes them out.
type Exporter struct {
	leads *repository.LeadRepository
	deals *repository.DealRepository
	now   func() time.Time
}

func NewExporter(leads *repository.LeadRepository, deals *repository.DealRepository) *Exporter {
	return &Exporter{
		leads: leads,
		deals: deals,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Parquet writes LeadsFile and DealsFile into dir, creating it if needed.
func (e *Exporter) Parquet(ctx context.Context, tenantID, dir string) (*Result, error) {
	leads, deals, err := e.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	result := &Result{
		Leads:     len(leads),
		Deals:     len(deals),
		LeadsPath: filepath.Join(dir, LeadsFile),
		DealsPath: filepath.Join(dir, DealsFile),
	}
	if err := WriteParquet(result.LeadsPath, LeadRows(leads)); err != nil {
		return nil, err
	}
	if err := WriteParquet(result.DealsPath, DealRows(deals)); err != nil {
		return nil, err
	}

	logger.Info("Exported tenant to parquet",
		zap.String("tenant_id", tenantID),
		zap.Int("leads", result.Leads),
		zap.Int("deals", result.Deals),
		zap.String("dir", dir),
	)
	return result, nil
}

// JSON writes the tenant as one indented Document.
func (e *Exporter) JSON(ctx context.Context, tenantID string, w io.Writer) (*Result, error) {
	leads, deals, err := e.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{
		TenantID:   tenantID,
		ExportedAt: e.now(),
		Leads:      leads,
		Deals:      deals,
	}); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	return &Result{Leads: len(leads), Deals: len(deals)}, nil
}

func (e *Exporter) load(ctx context.Context, tenantID string) ([]*models.Lead, []*models.Deal, error) {
	leads, err := e.leads.ListForAnalytics(ctx, tenantID, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load leads: %w", err)
	}
	deals, err := e.deals.ListForAnalytics(ctx, tenantID, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load deals: %w", err)
	}
	return leads, deals, nil
}

// WriteParquet writes rows to a new Parquet file at path, with the schema
// inferred from the row type's struct tags.
func WriteParquet[T any](path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func LeadRows(leads []*models.Lead) []LeadRow {
	rows := make([]LeadRow, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, LeadRow{
			ID:                    l.ID,
			TenantID:              l.TenantID,
			Name:                  l.Name,
			Email:                 l.Email,
			PhoneE164:             l.PhoneE164,
			Company:               l.Company,
			JobTitle:              l.JobTitle,
			Source:                string(l.Source),
			Status:                string(l.Status),
			Priority:              string(l.Priority),
			Tags:                  l.Tags,
			EmailsOpened:          int32(l.EmailsOpened),
			EmailsClicked:         int32(l.EmailsClicked),
			CallsConnected:        int32(l.CallsConnected),
			MeetingsHeld:          int32(l.MeetingsHeld),
			Converted:             l.Converted,
			Score:                 int32(l.AIScore),
			Grade:                 string(l.AIGrade),
			ConversionProbability: l.ConversionProbability,
			RecommendedAction:     l.RecommendedAction,
			AnalyzedAt:            l.AIAnalyzedAt,
			CreatedAt:             l.CreatedAt,
		})
	}
	return rows
}

func DealRows(deals []*models.Deal) []DealRow {
	rows := make([]DealRow, 0, len(deals))
	for _, d := range deals {
		rows = append(rows, DealRow{
			ID:                d.ID,
			TenantID:          d.TenantID,
			Title:             d.Title,
			Company:           d.Company,
			Value:             d.Value,
			Currency:          d.Currency,
			Pipeline:          d.Pipeline,
			Stage:             string(d.Stage),
			Status:            string(d.Status),
			Probability:       int32(d.Probability),
			ActivityCount:     int32(d.ActivityCount),
			DealScore:         int32(d.DealScore),
			WinProbability:    d.WinProbability,
			RiskLevel:         string(d.RiskLevel),
			Sentiment:         string(d.Sentiment),
			ExpectedCloseDate: d.ExpectedCloseDate,
			ActualCloseDate:   d.ActualCloseDate,
			AnalyzedAt:        d.AIAnalyzedAt,
			CreatedAt:         d.CreatedAt,
		})
	}
	return rows
}
