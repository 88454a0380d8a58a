package core

import (
	"agritrace/pkg/domain"
)

// Trace is the fixed provenance projection for a product. Stage hashes point
// at off-chain detail documents in the content-addressed store; resolving
// them is the reader's responsibility.
type Trace struct {
	ProductID              string       `json:"product_id"`
	Name                   string       `json:"name"`
	Stage                  Stage        `json:"stage"`
	State                  ProductState `json:"state"`
	OverallGrade           Grade        `json:"overall_grade"`
	IsActive               bool         `json:"is_active"`
	BatchID                *string      `json:"batch_id,omitempty"`
	FarmDetailHash         string       `json:"farm_detail_hash,omitempty"`
	DistributionDetailHash string       `json:"distribution_detail_hash,omitempty"`
	RetailDetailHash       string       `json:"retail_detail_hash,omitempty"`
	BoughtQuantity         int64        `json:"bought_quantity"`
}

// FullTrace returns the provenance projection for a product. An id that has
// never been created is an error, not an empty trace.
func (s *Service) FullTrace(productID string) (Trace, error) {
	product, ok := s.store.GetProduct(productID)
	if !ok {
		return Trace{}, domain.NotFoundError{Entity: EntityProduct, ID: productID}
	}
	return Trace{
		ProductID:              product.ID,
		Name:                   product.Name,
		Stage:                  product.Stage,
		State:                  product.State,
		OverallGrade:           product.OverallGrade,
		IsActive:               product.IsActive,
		BatchID:                product.BatchID,
		FarmDetailHash:         product.Farm.DetailHash,
		DistributionDetailHash: product.Distribution.DetailHash,
		RetailDetailHash:       product.Retail.DetailHash,
		BoughtQuantity:         product.Retail.BoughtQuantity,
	}, nil
}

// ProductTransfers returns the custody transfer log entries for a product in
// append order.
func (s *Service) ProductTransfers(productID string) []TransferRecord {
	var out []TransferRecord
	for _, t := range s.store.ListTransfers() {
		if t.ProductID == productID {
			out = append(out, t)
		}
	}
	return out
}

// Assessment returns the stored quality assessment for a (product, stage)
// pair, if one exists.
func (s *Service) Assessment(productID string, stage Stage) (QualityAssessment, bool) {
	return s.store.GetAssessment(productID, stage)
}

// Product returns the current product record.
func (s *Service) Product(productID string) (Product, error) {
	product, ok := s.store.GetProduct(productID)
	if !ok {
		return Product{}, domain.NotFoundError{Entity: EntityProduct, ID: productID}
	}
	return product, nil
}

// Batch returns the current batch record.
func (s *Service) Batch(batchID string) (Batch, error) {
	batch, ok := s.store.GetBatch(batchID)
	if !ok {
		return Batch{}, domain.NotFoundError{Entity: EntityBatch, ID: batchID}
	}
	return batch, nil
}
