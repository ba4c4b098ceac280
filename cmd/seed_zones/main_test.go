package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

const municipios = `<?xml version="1.0" encoding="ISO-8859-1"?>
<parametros>
  <tabla>
    <valor cod="05001" nombre="Medellín"><otro codigo="05" valor="Antioquia"/></valor>
    <valor cod="11001" nombre="Bogotá, D.C."><otro codigo="11" valor="Bogotá"/></valor>
    <valor cod="05001" nombre="Medellín"><otro codigo="05" valor="Antioquia"/></valor>
    <valor cod="" nombre="Sin código"/>
  </tabla>
</parametros>`

func TestParseZones_DecodificaLatin1YOmiteRepetidos(t *testing.T) {
	zones, err := parseZones(bytes.NewReader(latin1(t, municipios)))
	require.NoError(t, err)

	require.Len(t, zones, 2)
	assert.Equal(t, "05001", zones[0].code)
	assert.Equal(t, "Medellín (Antioquia)", zones[0].name)
	assert.Equal(t, "Bogotá, D.C. (Bogotá)", zones[1].name)
}

func TestParseZones_IDsEstables(t *testing.T) {
	a, err := parseZones(bytes.NewReader(latin1(t, municipios)))
	require.NoError(t, err)
	b, err := parseZones(bytes.NewReader(latin1(t, municipios)))
	require.NoError(t, err)

	assert.Equal(t, a[0].id, b[0].id, "el mismo código produce el mismo UUID")
	assert.NotEqual(t, a[0].id, a[1].id)
}

func TestWriteSQL_InsertIdempotenteConTarifa(t *testing.T) {
	var out strings.Builder
	err := writeSQL(&out, []zone{{id: "z1", code: "05001", name: "O'Higgins"}}, decimal.RequireFromString("4500"))
	require.NoError(t, err)

	sql := out.String()
	assert.Contains(t, sql, "('z1', '05001', 'O''Higgins', 4500.00)")
	assert.Contains(t, sql, "ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;")
}
