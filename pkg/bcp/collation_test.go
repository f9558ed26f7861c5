package bcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/block/bcpzip/pkg/test"
	"github.com/stretchr/testify/require"
)

const formatXML = `<?xml version="1.0"?>
<BCPFORMAT xmlns="http://schemas.microsoft.com/sqlserver/2004/bulkload/format">
 <RECORD>
  <FIELD ID="1" xsi:type="NativeFixed" LENGTH="4"/>
  <FIELD ID="2" xsi:type="NCharPrefix" PREFIX_LENGTH="2" MAX_LENGTH="100" COLLATION="SQL_Latin1_General_CP1_CI_AS"/>
  <FIELD ID="3" xsi:type="CharPrefix" PREFIX_LENGTH="2" MAX_LENGTH="20" collation="Latin1_General_100_CI_AS_SC_UTF8"/>
 </RECORD>
</BCPFORMAT>
`

const strippedXML = `<?xml version="1.0"?>
<BCPFORMAT xmlns="http://schemas.microsoft.com/sqlserver/2004/bulkload/format">
 <RECORD>
  <FIELD ID="1" xsi:type="NativeFixed" LENGTH="4"/>
  <FIELD ID="2" xsi:type="NCharPrefix" PREFIX_LENGTH="2" MAX_LENGTH="100" COLLATION=""/>
  <FIELD ID="3" xsi:type="CharPrefix" PREFIX_LENGTH="2" MAX_LENGTH="20" COLLATION=""/>
 </RECORD>
</BCPFORMAT>
`

func TestStripCollation(t *testing.T) {
	for _, bom := range []bool{true, false} {
		path := filepath.Join(t.TempDir(), "dbo.orders.xml")
		require.NoError(t, os.WriteFile(path, test.UTF16LE(t, formatXML, bom), 0o644))

		require.NoError(t, StripCollation(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, bom, data[0] == 0xFF && data[1] == 0xFE, "byte order mark preserved")
		require.Equal(t, strippedXML, test.FromUTF16LE(t, data))
	}
}

func TestStripCollationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.xml")
	require.NoError(t, os.WriteFile(path, test.UTF16LE(t, formatXML, true), 0o644))
	require.NoError(t, StripCollation(path))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, StripCollation(path))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestStripCollationMissingFile(t *testing.T) {
	err := StripCollation(filepath.Join(t.TempDir(), "missing.xml"))
	require.ErrorContains(t, err, "format file post-processing error")
	require.ErrorIs(t, err, os.ErrNotExist)
}
