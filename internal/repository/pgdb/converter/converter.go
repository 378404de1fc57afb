package converter

import (
	"encoding/json"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
)

// TemplateConverter преобразует ImportTemplate между domain и моделью PostgreSQL.
type TemplateConverter struct{}

func (TemplateConverter) ToEntity(m *ImportTemplateModel) *domain.ImportTemplate {
	return &domain.ImportTemplate{
		ID:             m.ID,
		Name:           m.Name,
		SupplierID:     m.SupplierID,
		TargetID:       m.TargetID,
		SeedURLs:       m.SeedURLs,
		DiscoveryModel: domain.DiscoveryModel(m.DiscoveryModel),
		Spec:           m.Spec,
		RequiresAuth:   m.RequiresAuth,
		PreparingRunID: m.PreparingRunID,
		CreatedAt:      m.CreatedAt,
	}
}

// RunConverter преобразует ImportRun; summary хранится в JSONB.
type RunConverter struct{}

func (RunConverter) ToModel(entity *domain.ImportRun) (*ImportRunModel, error) {
	summary, err := json.Marshal(entity.Summary)
	if err != nil {
		return nil, err
	}

	return &ImportRunModel{
		ID:         entity.ID,
		TemplateID: entity.TemplateID,
		SupplierID: entity.SupplierID,
		Status:     string(entity.Status),
		Mode:       string(entity.Mode),
		Summary:    summary,
		StartedAt:  entity.StartedAt,
		FinishedAt: entity.FinishedAt,
	}, nil
}

func (RunConverter) ToEntity(m *ImportRunModel) (*domain.ImportRun, error) {
	run := &domain.ImportRun{
		ID:         m.ID,
		TemplateID: m.TemplateID,
		SupplierID: m.SupplierID,
		Status:     domain.RunStatus(m.Status),
		Mode:       domain.RunMode(m.Mode),
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
	if err := unmarshalJSON(m.Summary, &run.Summary); err != nil {
		return nil, err
	}
	return run, nil
}

// StagedPartConverter преобразует StagedPart; характеристики хранятся в JSONB.
type StagedPartConverter struct{}

func (StagedPartConverter) ToModel(entity *domain.StagedPart) (*StagedPartModel, error) {
	raw, err := json.Marshal(entity.RawSpecs)
	if err != nil {
		return nil, err
	}
	norm, err := json.Marshal(entity.NormSpecs)
	if err != nil {
		return nil, err
	}

	return &StagedPartModel{
		RunID:          entity.RunID,
		Seq:            entity.Seq,
		SupplierID:     entity.SupplierID,
		ExternalID:     entity.ExternalID,
		URL:            entity.URL,
		Title:          entity.Title,
		PartType:       entity.PartType,
		Description:    entity.Description,
		Images:         entity.Images,
		RawSpecs:       raw,
		NormSpecs:      norm,
		PriceMsrp:      entity.PriceMsrp,
		PriceWholesale: entity.PriceWholesale,
		Availability:   entity.Availability,
		FetchedAt:      entity.FetchedAt,
		ContentHash:    entity.ContentHash,
		Warnings:       entity.Warnings,
	}, nil
}

func (StagedPartConverter) ToEntity(m *StagedPartModel) (*domain.StagedPart, error) {
	part := &domain.StagedPart{
		RunID:          m.RunID,
		Seq:            m.Seq,
		SupplierID:     m.SupplierID,
		ExternalID:     m.ExternalID,
		URL:            m.URL,
		Title:          m.Title,
		PartType:       m.PartType,
		Description:    m.Description,
		Images:         m.Images,
		PriceMsrp:      m.PriceMsrp,
		PriceWholesale: m.PriceWholesale,
		Availability:   m.Availability,
		FetchedAt:      m.FetchedAt,
		ContentHash:    m.ContentHash,
		Warnings:       m.Warnings,
	}
	if err := unmarshalJSON(m.RawSpecs, &part.RawSpecs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(m.NormSpecs, &part.NormSpecs); err != nil {
		return nil, err
	}
	return part, nil
}

// DiffConverter преобразует ImportDiff; снимки и validation хранятся в JSONB, before/after могут быть NULL.
type DiffConverter struct{}

func (DiffConverter) ToModel(entity *domain.ImportDiff) (*ImportDiffModel, error) {
	before, err := marshalNullable(entity.Before)
	if err != nil {
		return nil, err
	}
	after, err := marshalNullable(entity.After)
	if err != nil {
		return nil, err
	}
	validation, err := json.Marshal(entity.Validation)
	if err != nil {
		return nil, err
	}

	return &ImportDiffModel{
		ID:          entity.ID,
		Seq:         entity.Seq,
		ImportRunID: entity.ImportRunID,
		ExternalID:  entity.ExternalID,
		DiffType:    string(entity.DiffType),
		Before:      before,
		After:       after,
		Resolution:  string(entity.Resolution),
		Validation:  validation,
		CreatedAt:   entity.CreatedAt,
	}, nil
}

func (DiffConverter) ToEntity(m *ImportDiffModel) (*domain.ImportDiff, error) {
	d := &domain.ImportDiff{
		ID:          m.ID,
		Seq:         m.Seq,
		ImportRunID: m.ImportRunID,
		ExternalID:  m.ExternalID,
		DiffType:    domain.DiffType(m.DiffType),
		Resolution:  domain.Resolution(m.Resolution),
		CreatedAt:   m.CreatedAt,
	}
	if len(m.Before) > 0 {
		d.Before = &domain.Snapshot{}
		if err := json.Unmarshal(m.Before, d.Before); err != nil {
			return nil, err
		}
	}
	if len(m.After) > 0 {
		d.After = &domain.Snapshot{}
		if err := json.Unmarshal(m.After, d.After); err != nil {
			return nil, err
		}
	}
	if err := unmarshalJSON(m.Validation, &d.Validation); err != nil {
		return nil, err
	}
	return d, nil
}

// ProductConverter преобразует Product между domain и моделью PostgreSQL.
type ProductConverter struct{}

func (ProductConverter) ToEntity(m *ProductModel) *domain.Product {
	return &domain.Product{
		ID:              m.ID,
		SupplierID:      m.SupplierID,
		SKU:             m.SKU,
		Title:           m.Title,
		Type:            m.Type,
		Status:          domain.ProductStatus(m.Status),
		LatestVersionID: m.LatestVersionID,
		TargetProductID: m.TargetProductID,
		IsArchived:      m.IsArchived,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// VersionConverter преобразует ProductVersion.
type VersionConverter struct{}

func (VersionConverter) ToModel(entity *domain.ProductVersion) (*ProductVersionModel, error) {
	raw, err := json.Marshal(entity.RawSpecs)
	if err != nil {
		return nil, err
	}
	norm, err := json.Marshal(entity.NormSpecs)
	if err != nil {
		return nil, err
	}

	return &ProductVersionModel{
		ID:             entity.ID,
		ProductID:      entity.ProductID,
		ContentHash:    entity.ContentHash,
		RawSpecs:       raw,
		NormSpecs:      norm,
		Description:    entity.Description,
		Images:         entity.Images,
		PriceMsrp:      entity.PriceMsrp,
		PriceWholesale: entity.PriceWholesale,
		Availability:   entity.Availability,
		FetchedAt:      entity.FetchedAt,
		CreatedAt:      entity.CreatedAt,
	}, nil
}

func (VersionConverter) ToEntity(m *ProductVersionModel) (*domain.ProductVersion, error) {
	v := &domain.ProductVersion{
		ID:             m.ID,
		ProductID:      m.ProductID,
		ContentHash:    m.ContentHash,
		Description:    m.Description,
		Images:         m.Images,
		PriceMsrp:      m.PriceMsrp,
		PriceWholesale: m.PriceWholesale,
		Availability:   m.Availability,
		FetchedAt:      m.FetchedAt,
		CreatedAt:      m.CreatedAt,
	}
	if err := unmarshalJSON(m.RawSpecs, &v.RawSpecs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(m.NormSpecs, &v.NormSpecs); err != nil {
		return nil, err
	}
	return v, nil
}

// ImportLogConverter преобразует ImportLog.
type ImportLogConverter struct{}

func (ImportLogConverter) ToModel(entity *domain.ImportLog) (*ImportLogModel, error) {
	payload, err := json.Marshal(entity.Payload)
	if err != nil {
		return nil, err
	}

	return &ImportLogModel{
		ID:         entity.ID,
		TemplateID: entity.TemplateID,
		RunID:      entity.RunID,
		Type:       string(entity.Type),
		Payload:    payload,
		At:         entity.At,
	}, nil
}

func (ImportLogConverter) ToEntity(m *ImportLogModel) (*domain.ImportLog, error) {
	log := &domain.ImportLog{
		ID:         m.ID,
		TemplateID: m.TemplateID,
		RunID:      m.RunID,
		Type:       domain.LogType(m.Type),
		At:         m.At,
	}
	if err := unmarshalJSON(m.Payload, &log.Payload); err != nil {
		return nil, err
	}
	return log, nil
}

// OutboxEventConverter преобразует OutboxEvent между domain и моделью PostgreSQL.
type OutboxEventConverter struct{}

func (OutboxEventConverter) ToModel(entity *domain.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   entity.EventType,
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (OutboxEventConverter) ToEntity(m *OutboxEventModel) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:          m.ID,
		EventID:     m.EventID,
		EventType:   m.EventType,
		AggregateID: m.AggregateID,
		Payload:     m.Payload,
		Status:      domain.OutboxStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		ProcessedAt: m.ProcessedAt,
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*domain.OutboxEvent {
	out := make([]*domain.OutboxEvent, 0, len(models))
	for _, m := range models {
		out = append(out, c.ToEntity(m))
	}
	return out
}

func marshalNullable(s *domain.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
