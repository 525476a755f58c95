package billing

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func PeriodMatch(f PeriodFilter) bson.D { return periodMatch(f) }

func DistinctUsersPipeline(f PeriodFilter) mongo.Pipeline { return distinctUsersPipeline(f) }

func PeriodsPipeline(f PeriodFilter) mongo.Pipeline { return periodsPipeline(f) }

func NewStripeCatalogWith(getter stripeProductGetter) *StripeCatalog {
	return &StripeCatalog{products: getter}
}

func NewPaddleCatalogWith(getter paddleProductGetter) *PaddleCatalog {
	return &PaddleCatalog{products: getter}
}

func SetDeduplicatorClock(d *MemoryDeduplicator, now func() time.Time) { d.now = now }
