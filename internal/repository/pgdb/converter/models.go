package converter

import "time"

// ImportTemplateModel представляет запись таблицы import_templates в PostgreSQL.
type ImportTemplateModel struct {
	ID             int64     `db:"id"`
	Name           string    `db:"name"`
	SupplierID     string    `db:"supplier_id"`
	TargetID       string    `db:"target_id"`
	SeedURLs       []string  `db:"seed_urls"`
	DiscoveryModel string    `db:"discovery_model"`
	Spec           []byte    `db:"spec"`
	RequiresAuth   bool      `db:"requires_auth"`
	PreparingRunID *string   `db:"preparing_run_id"`
	CreatedAt      time.Time `db:"created_at"`
}

// ImportRunModel представляет запись таблицы import_runs.
type ImportRunModel struct {
	ID         string     `db:"id"`
	TemplateID int64      `db:"template_id"`
	SupplierID string     `db:"supplier_id"`
	Status     string     `db:"status"`
	Mode       string     `db:"mode"`
	Summary    []byte     `db:"summary"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// StagedPartModel представляет запись таблицы staged_parts.
type StagedPartModel struct {
	RunID          string    `db:"run_id"`
	Seq            int       `db:"seq"`
	SupplierID     string    `db:"supplier_id"`
	ExternalID     string    `db:"external_id"`
	URL            string    `db:"url"`
	Title          string    `db:"title"`
	PartType       string    `db:"part_type"`
	Description    string    `db:"description"`
	Images         []string  `db:"images"`
	RawSpecs       []byte    `db:"raw_specs"`
	NormSpecs      []byte    `db:"norm_specs"`
	PriceMsrp      *int64    `db:"price_msrp"`
	PriceWholesale *int64    `db:"price_wholesale"`
	Availability   string    `db:"availability"`
	FetchedAt      time.Time `db:"fetched_at"`
	ContentHash    string    `db:"content_hash"`
	Warnings       []string  `db:"warnings"`
}

// ImportDiffModel представляет запись таблицы import_diffs.
type ImportDiffModel struct {
	ID          string    `db:"id"`
	Seq         int64     `db:"seq"`
	ImportRunID string    `db:"import_run_id"`
	ExternalID  string    `db:"external_id"`
	DiffType    string    `db:"diff_type"`
	Before      []byte    `db:"before"`
	After       []byte    `db:"after"`
	Resolution  string    `db:"resolution"`
	Validation  []byte    `db:"validation"`
	CreatedAt   time.Time `db:"created_at"`
}

// ProductModel представляет запись таблицы products.
type ProductModel struct {
	ID              int64      `db:"id"`
	SupplierID      string     `db:"supplier_id"`
	SKU             string     `db:"sku"`
	Title           string     `db:"title"`
	Type            string     `db:"type"`
	Status          string     `db:"status"`
	LatestVersionID *int64     `db:"latest_version_id"`
	TargetProductID *string    `db:"target_product_id"`
	IsArchived      bool       `db:"is_archived"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at"`
}

// ProductVersionModel представляет запись таблицы product_versions.
type ProductVersionModel struct {
	ID             int64     `db:"id"`
	ProductID      int64     `db:"product_id"`
	ContentHash    string    `db:"content_hash"`
	RawSpecs       []byte    `db:"raw_specs"`
	NormSpecs      []byte    `db:"norm_specs"`
	Description    string    `db:"description"`
	Images         []string  `db:"images"`
	PriceMsrp      *int64    `db:"price_msrp"`
	PriceWholesale *int64    `db:"price_wholesale"`
	Availability   string    `db:"availability"`
	FetchedAt      time.Time `db:"fetched_at"`
	CreatedAt      time.Time `db:"created_at"`
}

// ImportLogModel представляет запись таблицы import_logs.
type ImportLogModel struct {
	ID         int64     `db:"id"`
	TemplateID *int64    `db:"template_id"`
	RunID      *string   `db:"run_id"`
	Type       string    `db:"type"`
	Payload    []byte    `db:"payload"`
	At         time.Time `db:"at"`
}

// OutboxEventModel представляет запись таблицы outbox_events.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	AggregateID string     `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
