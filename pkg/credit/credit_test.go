package credit

import (
	"strings"
	"testing"

	"github.com/mchmarny/riskdash/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, header string, rows ...string) *dataset.Frame {
	t.Helper()
	s := header + "\n" + strings.Join(rows, "\n") + "\n"
	f, err := dataset.Read(strings.NewReader(s))
	require.NoError(t, err)
	return f
}

const header = "id,Credit_Type_Consumer credit,Credit_Type_Household credit," +
	"Credit_Type_Residential mortgage credit,Credit_Type_Total business and household credit"

func TestDerive(t *testing.T) {
	f := frame(t, header,
		"1,1,0,0,0",
		"2,0,0,1,0",
		"3,0,0,0,1",
		"4,0,1,0,0",
	)

	got, err := New().Derive(f)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Consumer credit",
		"Residential mortgage credit",
		"Total business and household credit",
		"Household credit",
	}, got)
}

func TestDerive_BoolIndicators(t *testing.T) {
	f := frame(t, header,
		"1,False,True,False,False",
		"2,False,False,False,True",
	)

	got, err := New().Derive(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"Household credit", "Total business and household credit"}, got)
}

func TestDerive_TiesPickFirstColumn(t *testing.T) {
	f := frame(t, header, "1,0,1,1,0", "2,0,0,0,0")

	got, err := New().Derive(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"Household credit", "Consumer credit"}, got)
}

func TestDerive_MissingIndicatorIsFatal(t *testing.T) {
	f := frame(t, "id,Credit_Type_Consumer credit,Credit_Type_Household credit,"+
		"Credit_Type_Residential mortgage credit", "1,1,0,0")

	_, err := New().Derive(f)
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Total business and household credit")
}

func TestDerive_RowWithoutValue(t *testing.T) {
	f := frame(t, header, "1,,,,")

	_, err := New().Derive(f)
	assert.ErrorIs(t, err, ErrNoIndicator)
}

func TestDerive_TextIndicator(t *testing.T) {
	f := frame(t, header, "1,yes,0,0,0")

	_, err := New().Derive(f)
	require.ErrorIs(t, err, ErrIndicatorType)
	assert.Contains(t, err.Error(), "Credit_Type_Consumer credit")
}

func TestDerive_ColumnCount(t *testing.T) {
	f := frame(t, header, "1,1,0,0,0")

	tests := []struct {
		name string
		cols []string
	}{
		{"none", nil},
		{"three", DefaultColumns[:3]},
		{"five", append(append([]string{}, DefaultColumns...), "id")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Deriver{Columns: tt.cols, Prefix: DefaultPrefix}
			_, err := d.Derive(f)
			assert.ErrorIs(t, err, ErrColumnCount)
		})
	}
}
