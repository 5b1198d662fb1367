package docstore

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock, nil, zerolog.Nop()), mock
}

func TestMergeWriteUpsertsAndMerges(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("users/u1/settings", "profile", []byte(`{"logoImage":"https://cdn/x.jpg"}`)).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"logoImage":"https://cdn/x.jpg","theme":"dark"}`)))

	err := store.MergeWrite(context.Background(), "users/u1/settings", "profile", map[string]any{
		"logoImage": "https://cdn/x.jpg",
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArrayAppendCreatesFieldWhenMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("users/u1/private_diary", "entry-1", "images", []byte(`["https://cdn/a.jpg"]`)).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"images":["https://cdn/a.jpg"]}`)))

	err := store.ArrayAppend(context.Background(), "users/u1/private_diary", "entry-1", "images", "https://cdn/a.jpg")

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementIsSingleStatement(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("users/u1/guestbook", "entry-1", "likes", int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"likes":5}`)))

	err := store.Increment(context.Background(), "users/u1/guestbook", "entry-1", "likes", 1)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDecodesDocument(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM documents").
		WithArgs("users/u1/settings", "profile").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"theme":"dark","likes":3}`)))

	doc, err := store.Get(context.Background(), "users/u1/settings", "profile")

	require.NoError(t, err)
	assert.Equal(t, "profile", doc.ID)
	assert.Equal(t, "dark", doc.Data["theme"])
}

func TestGetMissingDocument(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM documents").
		WithArgs("users/u1/settings", "missing").
		WillReturnRows(pgxmock.NewRows([]string{"data"}))

	_, err := store.Get(context.Background(), "users/u1/settings", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReturnsAllDocuments(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, data FROM documents").
		WithArgs("users/u1/links").
		WillReturnRows(pgxmock.NewRows([]string{"id", "data"}).
			AddRow("link-1", []byte(`{"title":"Blog"}`)).
			AddRow("link-2", []byte(`{"title":"Shop"}`)))

	docs, err := store.List(context.Background(), "users/u1/links")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Blog", docs[0].Data["title"])
	assert.Equal(t, "link-2", docs[1].ID)
}

func TestCurrentSnapshotCarriesExistingState(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM documents").
		WithArgs("users", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"logoUrl":"https://cdn/logo.jpg"}`)))

	snap := store.currentSnapshot(context.Background(), "users", "user-1")

	assert.Equal(t, "users", snap.Collection)
	assert.Equal(t, "user-1", snap.ID)
	assert.Equal(t, "https://cdn/logo.jpg", snap.Data["logoUrl"])
}

func TestCurrentSnapshotForMissingDocumentHasNilData(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM documents").
		WithArgs("users", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}))

	snap := store.currentSnapshot(context.Background(), "users", "user-1")

	assert.Equal(t, "user-1", snap.ID)
	assert.Nil(t, snap.Data)
}

func TestDeleteRemovesDocument(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("users/u1/links", "link-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.Delete(context.Background(), "users/u1/links", "link-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
