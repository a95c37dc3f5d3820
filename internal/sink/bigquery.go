package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
)

// insertBatchSize keeps each streaming insert request well below the
// per-request row limit.
const insertBatchSize = 500

type tableBatch struct {
	tableID string
	schema  any // zero value of the row struct, used to infer the schema
	rows    []any
}

// BigQuerySink streams the output tables of a run into a BigQuery dataset.
// It holds a shared BigQuery client to avoid creating a new connection for
// each table.
type BigQuerySink struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQuerySink creates a new instance of BigQuerySink with a shared
// BigQuery client.
func NewBigQuerySink(ctx context.Context, projectID, datasetID string) (*BigQuerySink, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewBigQuerySink: project id is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuerySink: creating client: %w", err)
	}
	return &BigQuerySink{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (s *BigQuerySink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Write creates any missing output tables and inserts every row of res.
func (s *BigQuerySink) Write(ctx context.Context, res *pipeline.Result) error {
	log := logger.WithRun(logger.FromContext(ctx), res.RunID, "")

	for _, b := range batches(res) {
		if err := EnsureTableWithClient(ctx, s.client, s.projectID, s.datasetID, b.tableID, b.schema); err != nil {
			return err
		}
		if err := InsertRowsWithClient(ctx, s.client, s.projectID, s.datasetID, b.tableID, b.rows); err != nil {
			return err
		}
		log.Info().
			Str("table", fmt.Sprintf("%s.%s.%s", s.projectID, s.datasetID, b.tableID)).
			Int("rows", len(b.rows)).
			Msg("Table written")
	}
	return nil
}

// Migrate creates the dataset and every output table that does not exist yet.
func (s *BigQuerySink) Migrate(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if err := EnsureDatasetWithClient(ctx, s.client, s.projectID, s.datasetID); err != nil {
		return err
	}
	for _, b := range batches(&pipeline.Result{}) {
		if err := EnsureTableWithClient(ctx, s.client, s.projectID, s.datasetID, b.tableID, b.schema); err != nil {
			return err
		}
		log.Info().Str("table", fmt.Sprintf("%s.%s.%s", s.projectID, s.datasetID, b.tableID)).Msg("Table ready")
	}
	return nil
}

// EnsureDatasetWithClient creates the dataset unless it already exists.
func EnsureDatasetWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string) error {
	err := client.DatasetInProject(projectID, datasetID).Create(ctx, &bigquery.DatasetMetadata{})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureDataset: creating %s.%s: %w", projectID, datasetID, err)
	}
	return nil
}

// EnsureTableWithClient creates the table with a schema inferred from
// rowType unless it already exists.
func EnsureTableWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID, tableID string, rowType any) error {
	schema, err := bigquery.InferSchema(rowType)
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema for %s: %w", tableID, err)
	}

	table := client.DatasetInProject(projectID, datasetID).Table(tableID)
	err = table.Create(ctx, &bigquery.TableMetadata{Schema: schema})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureTable: creating %s: %w", tableID, err)
	}
	return nil
}

// InsertRowsWithClient streams rows into projectID.datasetID.tableID in
// batches.
func InsertRowsWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID, tableID string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}

	// The dataset is addressed in the sink's project, not the client default.
	inserter := client.DatasetInProject(projectID, datasetID).Table(tableID).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertRows: inserting rows %d-%d into %s: %w", start, end, tableID, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
