package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhelGc/roadsphere/internal/storage"
)

type fakeQuerier struct {
	calls    int
	question string
	preview  string
}

func (f *fakeQuerier) QueryDataset(_ context.Context, question, preview string) string {
	f.calls++
	f.question = question
	f.preview = preview
	return "answer"
}

func newService(t *testing.T) (*Service, *fakeQuerier) {
	t.Helper()
	q := &fakeQuerier{}
	gw := storage.NewGateway(storage.NewMemory(), "test", nil)
	return NewService(gw, q, nil), q
}

func TestParseCSVDiscardsMismatchedRows(t *testing.T) {
	ds, err := ParseCSV("a,b,c\n1,2,3\n1,2\n")
	require.NoError(t, err)

	want := &Dataset{Headers: []string{"a", "b", "c"}, Rows: []Row{{"1", "2", "3"}}}
	if diff := cmp.Diff(want, ds); diff != "" {
		t.Errorf("dataset (-want +got):\n%s", diff)
	}
}

func TestParseCSVStripsQuotesAndBlankLines(t *testing.T) {
	ds, err := ParseCSV("\"name\", 'age'\r\n\n  \"X\" , 5 \r\n\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, ds.Headers)
	assert.Equal(t, []Row{{"X", "5"}}, ds.Rows)
}

func TestParseCSVIdempotent(t *testing.T) {
	text := "road,speed\nA1,90\nB2,50"
	first, err := ParseCSV(text)
	require.NoError(t, err)
	second, err := ParseCSV(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseCSVValidation(t *testing.T) {
	tests := []struct {
		name string
		text string
		msg  string
	}{
		{"single line", "a,b,c", MsgTooShort},
		{"empty", "", MsgTooShort},
		{"no valid rows", "a,b\n1\n1,2,3\n", MsgNoRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(tt.text)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.msg, ve.Message)
		})
	}
}

func TestBuildKnowledgeBase(t *testing.T) {
	ds, err := ParseCSV("name,age\nX,5\nY,7")
	require.NoError(t, err)

	records := BuildKnowledgeBase(ds)
	require.Len(t, records, 2)
	assert.Equal(t, "Record 1: name is X, age is 5", records[0].Content)
	assert.Equal(t, "Record 2: name is Y, age is 7", records[1].Content)
	assert.Equal(t, 0, records[0].ID)
	assert.Equal(t, map[string]string{"name": "X", "age": "5"}, records[0].SourceRow)
}

func TestBuildKnowledgeBaseDuplicateHeaders(t *testing.T) {
	ds := &Dataset{Headers: []string{"a", "b", "a"}, Rows: []Row{{"1", "2", "3"}}}
	records := BuildKnowledgeBase(ds)
	assert.Equal(t, "Record 1: a is 3, b is 2", records[0].Content)
}

func TestDataPreview(t *testing.T) {
	ds, err := ParseCSV("a,b\n1,2\n3,4\n5,6\n7,8")
	require.NoError(t, err)

	want := "CSV Headers: a, b\n\nSample Data:\n" +
		`{"a":"1","b":"2"}` + "\n" +
		`{"a":"3","b":"4"}` + "\n" +
		`{"a":"5","b":"6"}` + "\n"
	assert.Equal(t, want, DataPreview(ds))
	assert.Equal(t, "CSV Headers: ", DataPreview(&Dataset{}))
}

func TestTablePreview(t *testing.T) {
	ds, err := ParseCSV("n\n1\n2\n3\n4\n5\n6\n7")
	require.NoError(t, err)

	table := TablePreview(ds)
	assert.Len(t, table.Rows, 5)
	assert.Equal(t, "Showing first 5 of 7 rows.", table.Note)

	small, err := ParseCSV("n\n1\n2")
	require.NoError(t, err)
	assert.Empty(t, TablePreview(small).Note)
}

func TestServiceUploadValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Upload("", nil)
	assert.EqualError(t, err, MsgNoFile)

	_, err = svc.Upload("data.txt", []byte("a,b\n1,2"))
	assert.EqualError(t, err, MsgNotCSV)

	_, err = svc.Upload("data.csv", []byte("a,b"))
	assert.EqualError(t, err, MsgTooShort)
	assert.Nil(t, svc.Dataset())

	ds, err := svc.Upload("DATA.CSV", []byte("a,b\n1,2"))
	require.NoError(t, err)
	assert.Same(t, ds, svc.Dataset())
}

func TestServiceBuildAndQuery(t *testing.T) {
	ctx := context.Background()
	svc, q := newService(t)

	_, _, err := svc.Build(ctx)
	assert.EqualError(t, err, MsgNoData)

	assert.Equal(t, MsgEmptyQuery, svc.Query(ctx, "   "))
	assert.Equal(t, MsgNoKnowledge, svc.Query(ctx, "how many crashes?"))
	assert.Zero(t, q.calls)

	_, err = svc.Upload("crashes.csv", []byte("road,crashes\nA1,4\nB2,9"))
	require.NoError(t, err)
	assert.Equal(t, MsgNoKnowledge, svc.Query(ctx, "how many crashes?"), "sin construir no hay base")

	records, msg, err := svc.Build(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "Knowledge base built with 2 records. You can now query your data.", msg)
	assert.Len(t, svc.Records(ctx), 2)

	assert.Equal(t, "answer", svc.Query(ctx, " how many crashes? "))
	assert.Equal(t, 1, q.calls)
	assert.Equal(t, "how many crashes?", q.question)
	assert.Contains(t, q.preview, "CSV Headers: road, crashes")

	require.NoError(t, svc.Clear(ctx))
	assert.Nil(t, svc.Dataset())
	assert.Empty(t, svc.Records(ctx))
	assert.Equal(t, MsgNoKnowledge, svc.Query(ctx, "how many crashes?"))
	assert.Equal(t, 1, q.calls)

	require.NoError(t, svc.Clear(ctx), "borrar sin base guardada no falla")
}
