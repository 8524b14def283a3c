package dataset

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `A,B,name,flag,risk_score
1,2.5,alpha,true,0.3
3,,beta,False,0.7
5,4,gamma,,0.1
`

func TestRead_InfersKinds(t *testing.T) {
	f, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, f.Rows())
	assert.Equal(t, []string{"A", "B", "name", "flag", "risk_score"}, f.Names())

	tests := []struct {
		name string
		kind Kind
	}{
		{"A", KindNumeric},
		{"B", KindNumeric},
		{"name", KindText},
		{"flag", KindBool},
		{"risk_score", KindNumeric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := f.Column(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, c.Kind)
		})
	}

	b, err := f.Column("B")
	require.NoError(t, err)
	assert.Equal(t, 2.5, b.Values[0])
	assert.True(t, math.IsNaN(b.Values[1]))

	flag, err := f.Column("flag")
	require.NoError(t, err)
	assert.Equal(t, 1.0, flag.Values[0])
	assert.Equal(t, 0.0, flag.Values[1])
	assert.True(t, math.IsNaN(flag.Values[2]))
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRead_HeaderOnly(t *testing.T) {
	f, err := Read(strings.NewReader("A,B\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.Rows())
	assert.Len(t, f.Columns(), 2)
}

func TestRead_RaggedRows(t *testing.T) {
	_, err := Read(strings.NewReader("A,B\n1,2\n3\n"))
	assert.Error(t, err)
}

func TestRead_DuplicateHeaders(t *testing.T) {
	f, err := Read(strings.NewReader("A,A,A\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A.1", "A.2"}, f.Names())
}

func TestRead_StripsBOM(t *testing.T) {
	f, err := Read(strings.NewReader("\ufeffA,B\n1,2\n"))
	require.NoError(t, err)
	assert.True(t, f.Has("A"))
}

func TestColumn_NotFound(t *testing.T) {
	f, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)
	_, err = f.Column("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestAddColumn(t *testing.T) {
	f, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)

	require.NoError(t, f.AddColumn("label", []string{"x", "y", "z"}))
	assert.Equal(t, "label", f.Names()[len(f.Names())-1])

	// replacing keeps position
	require.NoError(t, f.AddColumn("A", []string{"7", "8", "9"}))
	assert.Equal(t, "A", f.Names()[0])
	assert.Equal(t, "7", f.Head(1)[0][0])

	assert.Error(t, f.AddColumn("short", []string{"x"}))
}

func TestHead(t *testing.T) {
	f, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)
	assert.Len(t, f.Head(2), 2)
	assert.Len(t, f.Head(10), 3)
	assert.Equal(t, []string{"1", "2.5", "alpha", "true", "0.3"}, f.Head(1)[0])
}

func TestWriteCSV(t *testing.T) {
	f, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Equal(t, testCSV, buf.String())
}
