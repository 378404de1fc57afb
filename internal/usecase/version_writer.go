package usecase

import (
	"context"
	"strings"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/hashing"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

// VersionWriter — единственный компонент, изменяющий строки канонического каталога.
type VersionWriter struct {
	tx        TxManager
	suppliers SupplierRepository
	products  ProductRepository
	versions  VersionRepository
	sources   SourceRepository
	logger    logger.Logger
}

func NewVersionWriter(
	tx TxManager,
	suppliers SupplierRepository,
	products ProductRepository,
	versions VersionRepository,
	sources SourceRepository,
	logger logger.Logger,
) *VersionWriter {
	return &VersionWriter{
		tx:        tx,
		suppliers: suppliers,
		products:  products,
		versions:  versions,
		sources:   sources,
		logger:    logger,
	}
}

// UpsertNormalizedProduct сохраняет продукт, его версию и источник в одной транзакции.
// Новая версия создаётся, только если хэш содержимого отличается от всех прежних версий.
func (w *VersionWriter) UpsertNormalizedProduct(ctx context.Context, in *UpsertNormalizedReq) (*UpsertNormalizedRes, error) {
	const op = "VersionWriter.UpsertNormalizedProduct"

	if strings.TrimSpace(in.SupplierID) == "" || strings.TrimSpace(in.SKU) == "" {
		return nil, e.Wrap(op, e.ErrInvalidRequestBody)
	}

	hash := hashing.ComputeContentHash(hashing.Input{
		NormSpecs:      in.NormSpecs,
		Description:    in.Description,
		PriceMsrp:      in.PriceMsrp,
		PriceWholesale: in.PriceWholesale,
		Availability:   in.Availability,
	})

	res := &UpsertNormalizedRes{ContentHash: hash}
	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		// идемпотентное создание поставщика
		if err := w.suppliers.Ensure(ctx, &domain.Supplier{ID: in.SupplierID, Name: in.SupplierID}); err != nil {
			return err
		}

		// идемпотентное создание продукта, title/type обновляются при изменении
		pr, err := w.products.Upsert(ctx, domain.NewProduct(in.SupplierID, in.SKU, in.Title, in.Type))
		if err != nil {
			return err
		}
		product := pr.Product
		res.CreatedProduct = pr.Created
		res.ProductID = product.ID

		version, err := w.versions.FindByHash(ctx, product.ID, hash)
		if err != nil {
			return err
		}

		if version == nil {
			version, res.CreatedVersion, err = w.versions.Insert(ctx, &domain.ProductVersion{
				ProductID:      product.ID,
				ContentHash:    hash,
				RawSpecs:       in.RawSpecs,
				NormSpecs:      in.NormSpecs,
				Description:    in.Description,
				Images:         in.Images,
				PriceMsrp:      in.PriceMsrp,
				PriceWholesale: in.PriceWholesale,
				Availability:   in.Availability,
				FetchedAt:      in.FetchedAt,
			})
			if err != nil {
				return err
			}
		}
		res.VersionID = version.ID

		// при возврате к прежнему содержимому указатель тоже переставляется
		if product.LatestVersionID == nil || *product.LatestVersionID != version.ID {
			if err := w.products.SetLatestVersion(ctx, product.ID, version.ID); err != nil {
				return err
			}
		}

		if in.URL != "" {
			if _, err := w.sources.Upsert(ctx, &domain.ProductSource{
				SupplierID: in.SupplierID,
				URL:        in.URL,
				TemplateID: in.TemplateID,
				ProductID:  product.ID,
				LastSeenAt: in.FetchedAt,
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// MarkPublished сохраняет идентификатор товара во внешнем каталоге.
func (w *VersionWriter) MarkPublished(ctx context.Context, supplierID, sku, targetProductID string) error {
	const op = "VersionWriter.MarkPublished"

	product, err := w.products.GetBySKU(ctx, supplierID, sku)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := w.products.MarkPublished(ctx, product.ID, targetProductID); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// MarkArchived помечает продукт как удалённый у поставщика.
func (w *VersionWriter) MarkArchived(ctx context.Context, supplierID, sku string) error {
	const op = "VersionWriter.MarkArchived"

	product, err := w.products.GetBySKU(ctx, supplierID, sku)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := w.products.MarkArchived(ctx, product.ID); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}
