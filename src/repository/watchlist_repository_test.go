package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"signalscanner/src/model"
)

func TestWatchlistRepositoryAddRejectsDuplicate(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &WatchlistRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "watchlist_items" WHERE ticker = $1 AND strategy_id = $2 AND active = $3`)).
		WithArgs("THYAO", uint(7), true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Add(context.Background(), &model.WatchlistItem{
		Ticker:     "THYAO",
		Market:     model.MarketBIST,
		StrategyID: 7,
		Active:     true,
	})
	if !errors.Is(err, ErrDuplicateWatchlistItem) {
		t.Fatalf("expected ErrDuplicateWatchlistItem, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestWatchlistRepositoryAddInsertsWhenUnique(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &WatchlistRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "watchlist_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "watchlist_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	item := &model.WatchlistItem{
		Ticker:     "GARAN",
		Market:     model.MarketBIST,
		StrategyID: 7,
		Active:     true,
	}
	if err := repo.Add(context.Background(), item); err != nil {
		t.Fatalf("unique item must insert: %v", err)
	}
	if item.ID != 3 {
		t.Fatalf("insert must backfill the id, got %d", item.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
