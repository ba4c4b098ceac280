// seed_zones genera el script SQL que puebla delivery_zones a partir del XML oficial de
// municipios (Municipios.xml, codificado en ISO-8859-1). Cada municipio es una zona de
// entrega con la tarifa indicada; los IDs son UUID v5 del código DANE para que regenerar
// el script no cambie zonas ya asignadas a clientes.
//
// Uso: go run ./cmd/seed_zones [ruta/Municipios.xml] [tarifa]
// Escribe: internal/infrastructure/postgres/migrations/0002_seed_delivery_zones.sql
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// zoneNamespace espacio de nombres fijo para los UUID v5 de las zonas.
var zoneNamespace = uuid.MustParse("6f1c8a52-3d0b-4c55-9a38-2b7e0f4c9d11")

type parametros struct {
	Tabla struct {
		Valores []valor `xml:"valor"`
	} `xml:"tabla"`
}

type valor struct {
	Cod    string `xml:"cod,attr"`
	Nombre string `xml:"nombre,attr"`
	Otro   struct {
		Codigo string `xml:"codigo,attr"`
		Valor  string `xml:"valor,attr"`
	} `xml:"otro"`
}

type zone struct {
	id, code, name string
}

func main() {
	xmlPath := "Municipios.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	fee := decimal.Zero
	if len(os.Args) > 2 {
		var err error
		if fee, err = decimal.NewFromString(os.Args[2]); err != nil || fee.IsNegative() {
			fmt.Fprintf(os.Stderr, "Tarifa inválida: %q\n", os.Args[2])
			os.Exit(1)
		}
	}

	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	zones, err := parseZones(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar XML: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations", "0002_seed_delivery_zones.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, zones, fee); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d zonas, tarifa %s\n", outPath, len(zones), fee.StringFixed(2))
}

// parseZones lee el XML de parámetros y devuelve las zonas ordenadas por código.
// El nombre de la zona incluye el departamento: "Medellín (Antioquia)".
func parseZones(r io.Reader) ([]zone, error) {
	var p parametros
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var zones []zone
	for _, v := range p.Tabla.Valores {
		code := strings.TrimSpace(v.Cod)
		name := strings.TrimSpace(v.Nombre)
		if code == "" || name == "" || seen[code] {
			continue
		}
		seen[code] = true
		if dept := strings.TrimSpace(v.Otro.Valor); dept != "" {
			name = fmt.Sprintf("%s (%s)", name, dept)
		}
		zones = append(zones, zone{id: uuid.NewSHA1(zoneNamespace, []byte(code)).String(), code: code, name: name})
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].code < zones[j].code })
	return zones, nil
}

// writeSQL un único INSERT idempotente: regenerar actualiza nombres sin tocar tarifas ya ajustadas.
func writeSQL(w io.Writer, zones []zone, fee decimal.Decimal) error {
	var b strings.Builder
	b.WriteString("-- Zonas de entrega (municipios, código DANE)\n")
	b.WriteString("-- Generado con cmd/seed_zones desde Municipios.xml\n\n")
	if len(zones) == 0 {
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("INSERT INTO delivery_zones (id, code, name, delivery_fee) VALUES\n")
	for i, z := range zones {
		fmt.Fprintf(&b, "  ('%s', '%s', '%s', %s)", z.id, z.code, escapeSQL(z.name), fee.StringFixed(2))
		if i < len(zones)-1 {
			b.WriteString(",\n")
		} else {
			b.WriteString("\n")
		}
	}
	b.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
