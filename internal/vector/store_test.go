package vector

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEnsureSchemaCreatesExtensionAndTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE EXTENSION IF NOT EXISTS vector`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "documents"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db, "documents", 1536)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceDeletesThenInsertsInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "documents" WHERE source = $1`)).
		WithArgs("handbook.txt").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "documents"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "documents"`)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	store := NewStore(db, "documents", 3)
	chunks := []Chunk{
		{Source: "handbook.txt", Ordinal: 0, Content: "first"},
		{Source: "handbook.txt", Ordinal: 1, Content: "second"},
	}
	embeddings := [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}
	if err := store.Replace(context.Background(), "handbook.txt", chunks, embeddings); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceRejectsMismatchedLengths(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewStore(db, "documents", 3)
	err = store.Replace(context.Background(), "handbook.txt", []Chunk{{Ordinal: 0}}, nil)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "documents"`)).
		WithArgs("handbook.txt").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "documents"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	store := NewStore(db, "documents", 3)
	err = store.Replace(context.Background(), "handbook.txt",
		[]Chunk{{Source: "handbook.txt", Ordinal: 0, Content: "first"}},
		[][]float32{{0.1, 0.2, 0.3}})
	if err == nil {
		t.Fatal("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchSimilarOrdersByDistance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{"source", "ordinal", "content", "distance"}).
		AddRow("handbook.txt", 2, "nearest", 0.11).
		AddRow("handbook.txt", 0, "further", 0.42)
	mock.ExpectQuery(`SELECT source, ordinal, content, embedding <=> \$1 AS distance`).
		WillReturnRows(rows)

	store := NewStore(db, "documents", 3)
	matches, err := store.SearchSimilar(context.Background(), []float32{0.1, 0.2, 0.3}, 2)
	if err != nil {
		t.Fatalf("SearchSimilar() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d", len(matches))
	}
	if matches[0].Content != "nearest" || matches[0].Distance != 0.11 {
		t.Fatalf("matches[0] = %#v", matches[0])
	}
}

func TestSearchSimilarEmptyIsNotAnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT source, ordinal, content`).
		WillReturnRows(sqlmock.NewRows([]string{"source", "ordinal", "content", "distance"}))

	store := NewStore(db, "documents", 3)
	matches, err := store.SearchSimilar(context.Background(), []float32{0.1, 0.2, 0.3}, 4)
	if err != nil {
		t.Fatalf("SearchSimilar() error = %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %#v", matches)
	}
}
