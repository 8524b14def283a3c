package align

import (
	"strings"
	"testing"

	"github.com/mchmarny/riskdash/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func readFrame(t *testing.T, s string) *dataset.Frame {
	t.Helper()
	f, err := dataset.Read(strings.NewReader(s))
	require.NoError(t, err)
	return f
}

func TestAlign_ZeroFillsAndDropsLeakage(t *testing.T) {
	f := readFrame(t, "A,B,risk_score\n1,2,0.9\n3,4,0.1\n")

	m, err := New([]string{"A", "B", "C"}).Align(f)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, m.Features)
	assert.Equal(t, []string{"C"}, m.Filled)
	assert.Equal(t, []string{"risk_score"}, m.Dropped)

	want := mat.NewDense(2, 3, []float64{1, 2, 0, 3, 4, 0})
	assert.True(t, mat.Equal(want, m.X))
}

func TestAlign_ReordersAndDiscards(t *testing.T) {
	f := readFrame(t, "Z,C,extra,A,B,label\n9,3,7,1,2,x\n")

	m, err := New([]string{"A", "B", "C"}).Align(f)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, m.Features)
	assert.Empty(t, m.Filled)
	assert.ElementsMatch(t, []string{"Z", "extra"}, m.Discarded)
	assert.Equal(t, []float64{1, 2, 3}, m.Head(1)[0])
}

func TestAlign_NonNumericSchemaColumnIsZeroFilled(t *testing.T) {
	f := readFrame(t, "A,B\n1,yes\n2,no\n")

	m, err := New([]string{"A", "B"}).Align(f)
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, m.Filled)
	assert.Equal(t, []float64{0, 0}, mat.Col(nil, 1, m.X))
}

func TestAlign_SchemaOrderForAnyUpload(t *testing.T) {
	schema := []string{"f3", "f1", "f2"}
	uploads := []string{
		"f1,f2,f3\n1,2,3\n",
		"f2\n5\n",
		"other,text\n1,a\n",
		"credit_risk,f3,f1\n1,2,3\n",
	}
	for _, u := range uploads {
		m, err := New(schema).Align(readFrame(t, u))
		require.NoError(t, err)
		assert.Equal(t, schema, m.Features)
		_, c := m.X.Dims()
		assert.Equal(t, len(schema), c)
		assert.Equal(t, 1, m.Rows())
	}
}

func TestAlign_Errors(t *testing.T) {
	f := readFrame(t, "A\n1\n")

	_, err := New(nil).Align(f)
	assert.ErrorIs(t, err, ErrNoSchema)

	_, err = New([]string{"A"}).Align(readFrame(t, "A\n"))
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = New([]string{"A", "A"}).Align(f)
	assert.Error(t, err)
}

func TestHead(t *testing.T) {
	f := readFrame(t, "A\n1\n2\n3\n")
	m, err := New([]string{"A"}).Align(f)
	require.NoError(t, err)
	assert.Len(t, m.Head(2), 2)
	assert.Len(t, m.Head(-1), 3)
}
