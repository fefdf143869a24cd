package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingledger/internal/config"
	"github.com/smallbiznis/billingledger/internal/observability/logger"
	"github.com/smallbiznis/billingledger/internal/observability/metrics"
	"github.com/smallbiznis/billingledger/internal/observability/tracing"
	"github.com/smallbiznis/billingledger/internal/orgcontext"
	"github.com/smallbiznis/billingledger/internal/transaction/builder"
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const tracerName = "billingledger/transaction"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Config  *config.LedgerConfigHolder
	Metrics *metrics.Metrics       `optional:"true"`
	Ledger  *metrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	cfg     *config.LedgerConfigHolder
	metrics *metrics.Metrics
	ledger  *metrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("transaction.service"),
		repo:    p.Repo,
		cfg:     p.Config,
		metrics: p.Metrics,
		ledger:  p.Ledger,
	}
}

type listQuery struct {
	tenantID     snowflake.ID
	cursor       domain.Cursor
	limit        int
	typeFilter   domain.TransactionType
	customerType string
}

func (s *Service) ListTransactions(ctx context.Context, req domain.ListTransactionsRequest) (domain.ListTransactionsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidOrganization
	}

	cfg := s.cfg.Get()
	query, err := s.parseRequest(orgID, req, cfg)
	if err != nil {
		s.metrics.RecordListRequest(ctx, orgID.String(), "rejected")
		return domain.ListTransactionsResponse{}, err
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "transaction.list",
		attribute.String("org_id", orgID.String()),
		attribute.Int("ledger.limit", query.limit),
		attribute.String("ledger.transaction_type", string(query.typeFilter)),
	)

	batches, stale, err := s.fetchBatches(ctx, query, cfg)
	if err != nil {
		tracing.EndSpan(span, err)
		s.metrics.RecordListRequest(ctx, orgID.String(), "failed")
		return domain.ListTransactionsResponse{}, err
	}

	incoming := query.cursor
	for _, source := range domain.Sources {
		if stale[source] {
			incoming[source] = ""
		}
	}

	state := paginate(batches, incoming, query.typeFilter, query.limit)
	resp := domain.ListTransactionsResponse{Transactions: state.page}
	if !state.done {
		next := state.cursor.String()
		resp.NextCursor = &next
	}

	span.SetAttributes(attribute.Int("ledger.rows", len(state.page)))
	tracing.EndSpan(span, nil)
	s.recordListed(ctx, orgID, state.page)

	return resp, nil
}

func (s *Service) parseRequest(orgID snowflake.ID, req domain.ListTransactionsRequest, cfg config.LedgerConfig) (listQuery, error) {
	query := listQuery{tenantID: orgID}

	switch {
	case req.Limit == 0:
		query.limit = cfg.DefaultPageSize
	case req.Limit < domain.MinLimit || req.Limit > domain.MaxLimit:
		return listQuery{}, domain.ErrInvalidLimit
	default:
		query.limit = req.Limit
	}

	cursor, err := domain.ParseCursor(strings.TrimSpace(req.Cursor))
	if err != nil {
		return listQuery{}, err
	}
	query.cursor = cursor

	if value := strings.TrimSpace(req.Type); value != "" {
		typeFilter, err := domain.ParseTransactionType(value)
		if err != nil {
			return listQuery{}, err
		}
		query.typeFilter = typeFilter
	}

	if value := strings.TrimSpace(req.CustomerType); value != "" {
		customerType, err := domain.ParseCustomerType(value)
		if err != nil {
			return listQuery{}, err
		}
		query.customerType = customerType.Stored()
	}

	return query, nil
}

// fetchBatches resolves every pivot and runs every source query in parallel.
// Sources that cannot produce typeFilter are not queried. Any failure fails
// the whole call.
func (s *Service) fetchBatches(ctx context.Context, query listQuery, cfg config.LedgerConfig) ([]batch, [domain.SourceCount]bool, error) {
	var (
		results [domain.SourceCount]*batch
		stale   [domain.SourceCount]bool
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, source := range domain.Sources {
		if query.typeFilter != "" && source.TransactionType() != query.typeFilter {
			continue
		}
		g.Go(func() error {
			pivot, isStale, err := s.resolvePivot(gctx, query, source, cfg.PivotLookupTimeout)
			if err != nil {
				return &domain.SourceFetchError{Source: source, Err: err}
			}
			stale[source] = isStale

			b, err := s.fetchSource(gctx, query, source, pivot, cfg.SourceFetchTimeout)
			if err != nil {
				return &domain.SourceFetchError{Source: source, Err: err}
			}
			results[source] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stale, err
	}

	batches := make([]batch, 0, domain.SourceCount)
	for _, b := range results {
		if b != nil {
			batches = append(batches, *b)
		}
	}
	return batches, stale, nil
}

// resolvePivot looks up the ordering key of the source's cursor fragment. A
// fragment pointing at a missing record restarts the source.
func (s *Service) resolvePivot(ctx context.Context, query listQuery, source domain.Source, timeout time.Duration) (*domain.Pivot, bool, error) {
	fragment := query.cursor.Fragment(source)
	if fragment == "" {
		return nil, false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx, span := tracing.StartSpan(ctx, tracerName, "transaction.pivot",
		attribute.String("ledger.source", source.String()),
	)

	start := time.Now()
	pivot, err := s.repo.FindPivot(ctx, s.db, query.tenantID, source, fragment)
	s.ledger.ObserveSourceFetch(source.String(), metrics.StagePivot, time.Since(start))
	if err != nil {
		s.ledger.IncSourceFetchError(source.String(), err)
		tracing.EndSpan(span, err)
		return nil, false, err
	}
	if pivot == nil {
		s.ledger.IncStalePivot(source.String())
		span.SetAttributes(attribute.Bool("ledger.stale_pivot", true))
		logger.WithSource(logger.WithContext(ctx, s.log), source.String()).Debug("stale cursor fragment, restarting source")
	}
	tracing.EndSpan(span, nil)
	return pivot, pivot == nil, nil
}

func (s *Service) fetchSource(ctx context.Context, query listQuery, source domain.Source, pivot *domain.Pivot, timeout time.Duration) (*batch, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx, span := tracing.StartSpan(ctx, tracerName, "transaction.fetch",
		attribute.String("ledger.source", source.String()),
		attribute.Int("ledger.limit", query.limit),
	)

	filter := domain.FetchFilter{
		CustomerType: query.customerType,
		Before:       pivot,
		Limit:        query.limit,
	}

	start := time.Now()
	records, err := s.listRecords(ctx, query.tenantID, source, filter)
	s.ledger.ObserveSourceFetch(source.String(), metrics.StageFetch, time.Since(start))
	if err != nil {
		s.ledger.IncSourceFetchError(source.String(), err)
		tracing.EndSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("ledger.rows", len(records)))
	tracing.EndSpan(span, nil)

	b := &batch{
		source:    source,
		items:     make([]item, 0, len(records)),
		truncated: len(records) >= query.limit,
	}
	for _, record := range records {
		tx, err := builder.Build(record)
		if err != nil {
			s.ledger.IncSkippedRecord(source.String())
			logger.WithSource(logger.WithContext(ctx, s.log), source.String()).Warn("skipping record",
				zap.String("record_id", record.Key().ID),
				zap.Error(err),
			)
		}
		b.items = append(b.items, item{source: source, key: record.Key(), tx: tx})
	}
	return b, nil
}

func (s *Service) listRecords(ctx context.Context, tenantID snowflake.ID, source domain.Source, filter domain.FetchFilter) ([]domain.Record, error) {
	switch source {
	case domain.SourceSubscriptions:
		items, err := s.repo.ListSubscriptions(ctx, s.db, tenantID, filter)
		return toRecords(items), err
	case domain.SourceItemQuantityChanges:
		items, err := s.repo.ListItemQuantityChanges(ctx, s.db, tenantID, filter)
		return toRecords(items), err
	case domain.SourceOneTimePurchases:
		items, err := s.repo.ListOneTimePurchases(ctx, s.db, tenantID, filter)
		return toRecords(items), err
	case domain.SourceSubscriptionInvoices:
		items, err := s.repo.ListSubscriptionInvoices(ctx, s.db, tenantID, filter)
		return toRecords(items), err
	default:
		return nil, domain.ErrUnknownRecord
	}
}

func toRecords[T domain.Record](items []T) []domain.Record {
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		records = append(records, item)
	}
	return records
}

func (s *Service) recordListed(ctx context.Context, orgID snowflake.ID, page []domain.Transaction) {
	s.metrics.RecordListRequest(ctx, orgID.String(), "ok")
	counts := map[domain.TransactionType]int{}
	for _, tx := range page {
		counts[tx.Type]++
	}
	for typ, count := range counts {
		s.metrics.RecordTransactionsListed(ctx, orgID.String(), string(typ), count)
	}
	s.log.Debug("transactions listed",
		zap.String("org_id", orgID.String()),
		zap.Int("count", len(page)),
		zap.Int("types", len(counts)),
	)
}
