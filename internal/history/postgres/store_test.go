package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/viberoam/restaurant-scraper/internal/scrape"
)

func TestRecordScrapeInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "scrapes")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()

	rec := scrape.HistoryRecord{
		RunID:      "run-uuid",
		TargetID:   "42",
		TargetName: "Café Central",
		URL:        "https://www.tripadvisor.com/Restaurant_Review-g188590",
		StorageKey: "scraped_data/20231114_221320/42_Café_Central.json",
		BlobURI:    "gs://bucket/scraped_data/20231114_221320/42_Café_Central.json",
		Success:    true,
		HTTPStatus: 200,
		Attempts:   1,
		ScrapedAt:  now,
	}

	mock.ExpectExec("INSERT INTO scrapes").
		WithArgs(
			rec.RunID,
			rec.TargetID,
			rec.TargetName,
			rec.URL,
			rec.StorageKey,
			rec.BlobURI,
			rec.Success,
			rec.HTTPStatus,
			rec.Attempts,
			rec.Error,
			rec.ScrapedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.RecordScrape(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordScrapeRequiresRunID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "")
	require.NoError(t, err)

	err = store.RecordScrape(context.Background(), scrape.HistoryRecord{})
	require.Error(t, err)
}

func TestNewStoreWithPoolRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewStoreWithPool(mock, "scrapes; DROP TABLE users")
	require.Error(t, err)
}
