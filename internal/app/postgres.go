package app

import (
	"context"

	"tillpoint/internal/infrastructure/storage/postgres"
	"tillpoint/internal/infrastructure/storage/postgres/catalog_repo"
	"tillpoint/internal/infrastructure/storage/postgres/report_repo"
	"tillpoint/internal/infrastructure/storage/postgres/sale_repo"
	"tillpoint/internal/infrastructure/storage/postgres/stock_repo"
	"tillpoint/pkg/numerator"
)

// PostgresRepositories wires the pgx repositories over one transaction manager.
func PostgresRepositories(txm *postgres.TxManager, auditLog *postgres.AuditLog) Repositories {
	products := catalog_repo.NewProductRepo(txm)
	return Repositories{
		TxManager:    txm,
		Products:     products,
		ProductLocks: products,
		Batches:      stock_repo.NewBatchRepo(txm),
		Movements:    stock_repo.NewMovementRepo(txm),
		Sales:        sale_repo.NewSaleRepo(txm),
		Returns:      sale_repo.NewReturnRepo(txm),
		Promotions:   catalog_repo.NewPromotionRepo(txm),
		Reports:      report_repo.NewReportRepo(txm),
		Numerator: numerator.NewWithQuerier(func(ctx context.Context) numerator.Querier {
			return txm.GetQuerier(ctx)
		}),
		Audit:  auditLog,
		Events: postgres.NewOutboxPublisher(txm),
	}
}
