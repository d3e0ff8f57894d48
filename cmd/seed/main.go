// seed genera un script SQL para poblar inventory_items a partir de un catálogo CSV
// (UTF-8 o ISO-8859-1, detectado automáticamente).
//
// Uso: go run ./cmd/seed catalogo.csv [salida.sql]
// Columnas: product_name, category, buying_price, selling_price, packaging, initial_quantity, initial_unit.
// packaging acepta JSON (cualquier forma que acepta la API) o la forma compacta "CTN:10>DZ:12>PCS".
// Por defecto escribe seed_inventory.sql en el directorio actual.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/inventory"
)

var requiredColumns = []string{"product_name", "packaging"}

// seedRow fila ya validada del catálogo.
type seedRow struct {
	ID              string
	ProductName     string
	Category        string
	BuyingPrice     decimal.Decimal
	SellingPrice    decimal.Decimal
	Layers          []entity.PackagingLayer
	InitialLayer    int
	InitialQuantity int64
	TotalBasePieces int64
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: seed catalogo.csv [salida.sql]")
		os.Exit(2)
	}
	outPath := "seed_inventory.sql"
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	rows, err := parseCatalog(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Catálogo: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d ítems\n", outPath, len(rows))
}

// decodeText devuelve el contenido en UTF-8; si no es UTF-8 válido se asume ISO-8859-1.
func decodeText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	s, _, err := transform.String(charmap.ISO8859_1.NewDecoder(), string(raw))
	return s, err
}

func parseCatalog(raw []byte) ([]seedRow, error) {
	text, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("decodificar: %w", err)
	}
	r := csv.NewReader(strings.NewReader(text))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("falta la columna %q", c)
		}
	}

	var rows []seedRow
	seen := map[string]int{}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		row, err := buildRow(get)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if prev, dup := seen[row.ID]; dup {
			return nil, fmt.Errorf("línea %d: producto repetido (ver línea %d)", line, prev)
		}
		seen[row.ID] = line
		rows = append(rows, row)
	}
	return rows, nil
}

func buildRow(get func(string) string) (seedRow, error) {
	name := get("product_name")
	if name == "" {
		return seedRow{}, fmt.Errorf("product_name vacío")
	}
	in, err := parsePackaging(get("packaging"))
	if err != nil {
		return seedRow{}, err
	}
	layers, err := inventory.Normalize(in)
	if err != nil {
		return seedRow{}, err
	}
	row := seedRow{
		// ID estable por nombre: regenerar el script no duplica ítems.
		ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte("inventario-flota:item:"+strings.ToLower(name))).String(),
		ProductName:  name,
		Category:     get("category"),
		Layers:       layers,
		InitialLayer: inventory.BaseLayer(layers),
	}
	if row.BuyingPrice, err = parseMoney(get("buying_price")); err != nil {
		return seedRow{}, fmt.Errorf("buying_price: %w", err)
	}
	if row.SellingPrice, err = parseMoney(get("selling_price")); err != nil {
		return seedRow{}, fmt.Errorf("selling_price: %w", err)
	}
	if q := get("initial_quantity"); q != "" {
		if row.InitialQuantity, err = strconv.ParseInt(q, 10, 64); err != nil || row.InitialQuantity < 0 {
			return seedRow{}, fmt.Errorf("initial_quantity inválido %q", q)
		}
	}
	if row.InitialQuantity > 0 {
		if unit := get("initial_unit"); unit != "" {
			if row.InitialLayer, err = inventory.Resolve(layers, inventory.UnitRef{Unit: unit}); err != nil {
				return seedRow{}, err
			}
		}
		if row.TotalBasePieces, err = inventory.ToBasePieces(layers, row.InitialLayer, row.InitialQuantity); err != nil {
			return seedRow{}, err
		}
	}
	return row, nil
}

// parsePackaging acepta JSON o "CTN:10>DZ:12>PCS".
func parsePackaging(s string) (inventory.PackagingInput, error) {
	var in inventory.PackagingInput
	if s == "" {
		return in, fmt.Errorf("packaging vacío")
	}
	switch s[0] {
	case '[', '{', '"':
		if err := json.Unmarshal([]byte(s), &in); err != nil {
			return in, fmt.Errorf("packaging JSON: %w", err)
		}
		return in, nil
	}
	for _, part := range strings.Split(s, ">") {
		unit, qtyText, hasQty := strings.Cut(strings.TrimSpace(part), ":")
		layer := inventory.RawLayer{Unit: strings.TrimSpace(unit)}
		if hasQty {
			qty, err := strconv.Atoi(strings.TrimSpace(qtyText))
			if err != nil {
				return in, fmt.Errorf("packaging: qty inválido en %q", part)
			}
			layer.Qty = &qty
		}
		in.Flat = append(in.Flat, layer)
	}
	return in, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negativo")
	}
	return d, nil
}

func writeSQL(w io.Writer, rows []seedRow) error {
	var b strings.Builder
	b.WriteString("-- Catálogo inicial de la bodega central\n")
	b.WriteString("-- Generado por cmd/seed\n\n")
	for _, row := range rows {
		packaging, err := json.Marshal(row.Layers)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "INSERT INTO inventory_items (id, product_name, category, buying_price, selling_price, packaging_structure, total_base_pieces, created_at, updated_at)\n")
		fmt.Fprintf(&b, "VALUES ('%s', '%s', '%s', %s, %s, '%s'::jsonb, %d, NOW(), NOW())\n",
			row.ID, escapeSQL(row.ProductName), escapeSQL(row.Category),
			row.BuyingPrice.String(), row.SellingPrice.String(), escapeSQL(string(packaging)), row.TotalBasePieces)
		b.WriteString("ON CONFLICT (id) DO NOTHING;\n")
		if row.InitialQuantity > 0 {
			fmt.Fprintf(&b, "INSERT INTO inventory_movements (id, transaction_id, item_id, type, layer_index, unit, quantity, base_pieces, reference, created_at)\n")
			fmt.Fprintf(&b, "VALUES ('%s', '%s', '%s', '%s', %d, '%s', %d, %d, 'seed', NOW())\n",
				uuid.NewSHA1(uuid.NameSpaceURL, []byte("inventario-flota:seed:"+row.ID)).String(), row.ID, row.ID,
				entity.MovementTypeReplenish, row.InitialLayer, escapeSQL(row.Layers[row.InitialLayer].Unit),
				row.InitialQuantity, row.TotalBasePieces)
			b.WriteString("ON CONFLICT (id) DO NOTHING;\n")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
